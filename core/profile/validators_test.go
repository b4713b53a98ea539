package profile

import (
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func validTeacher() *TeacherInput {
	return &TeacherInput{
		BaseInput: BaseInput{
			Username: "MSnape ",
			Password: "potionsmaster1",
			Name:     "Severus",
			Surname:  "Snape",
			Email:    " Severus@Hogwarts.test",
		},
		BloodType: "O-",
		Sex:       SexMale,
		Birthday:  core.NewDate(time.Date(1960, 1, 9, 0, 0, 0, 0, time.UTC)),
		Subjects:  []core.NumID{3},
	}
}

func TestInputValidate(t *testing.T) {
	validate, translator := newValidator()

	tests := []struct {
		name       string
		input      func() Input
		wantFields []string
	}{
		{
			name:  "valid teacher",
			input: func() Input { return validTeacher() },
		},
		{
			name: "password required on create",
			input: func() Input {
				in := validTeacher()
				in.Password = ""
				return in
			},
			wantFields: []string{"password"},
		},
		{
			name: "password optional on update",
			input: func() Input {
				in := validTeacher()
				in.ID = "3f1a7c52-7a2e-4f3e-9d2b-0d5c8e4b9a11"
				in.Password = ""
				return in
			},
		},
		{
			name: "password too similar to username",
			input: func() Input {
				in := validTeacher()
				in.Password = "msnape12"
				return in
			},
			wantFields: []string{"password"},
		},
		{
			name: "password of 72 bytes",
			input: func() Input {
				in := validTeacher()
				in.Password = strings.Repeat("é", 36)
				return in
			},
		},
		{
			name: "password over 72 bytes",
			input: func() Input {
				in := validTeacher()
				in.Password = strings.Repeat("é", 40)
				return in
			},
			wantFields: []string{"password"},
		},
		{
			name: "invalid sex and missing birthday",
			input: func() Input {
				in := validTeacher()
				in.Sex = "OTHER"
				in.Birthday = core.Date{}
				return in
			},
			wantFields: []string{"sex", "birthday"},
		},
		{
			name: "invalid subject id",
			input: func() Input {
				in := validTeacher()
				in.Subjects = []core.NumID{0}
				return in
			},
			wantFields: []string{"subjects[0]"},
		},
		{
			name: "short username and bad email",
			input: func() Input {
				in := validTeacher()
				in.Username = "ms"
				in.Email = "severus"
				return in
			},
			wantFields: []string{"username", "email"},
		},
		{
			name: "student relations",
			input: func() Input {
				return &StudentInput{
					BaseInput: BaseInput{Username: "hpotter", Password: "nimbus2000", Name: "Harry", Surname: "Potter"},
					BloodType: "A+",
					Sex:       SexMale,
					Birthday:  core.NewDate(time.Date(1980, 7, 31, 0, 0, 0, 0, time.UTC)),
				}
			},
			wantFields: []string{"gradeId", "classId", "parentId"},
		},
		{
			name: "parent phone required",
			input: func() Input {
				return &ParentInput{
					BaseInput: BaseInput{Username: "vdursley", Password: "privetdrive4", Name: "Vernon", Surname: "Dursley"},
				}
			},
			wantFields: []string{"phone"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input().Validate(validate)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			msgs := core.FieldMessages(err, translator)
			for _, fld := range tt.wantFields {
				assert.Contains(t, msgs, fld)
			}
			assert.Len(t, msgs, len(tt.wantFields))
		})
	}
}

func TestInputValidate_passwordTooLong(t *testing.T) {
	validate, translator := newValidator()
	in := validTeacher()
	in.Password = strings.Repeat("é", 40)

	msgs := core.FieldMessages(in.Validate(validate), translator)
	assert.Equal(t, map[string]string{"password": "password cannot be longer than 72 bytes"}, msgs)
}

func TestInputClean(t *testing.T) {
	in := validTeacher()
	validate, _ := newValidator()
	assert.NoError(t, in.Validate(validate))
	assert.Equal(t, "msnape", in.Username)
	assert.Equal(t, "severus@hogwarts.test", in.Email)
}

func TestInputProfile(t *testing.T) {
	in := validTeacher()
	in.Phone = ""
	tch, ok := in.Profile("id-1").(Teacher)
	assert.True(t, ok)
	assert.Equal(t, "id-1", tch.ID)
	assert.Equal(t, []int{3}, tch.SubjectIDs)
	assert.False(t, tch.Phone.Valid)
	assert.True(t, tch.Email.Valid)
	assert.Equal(t, KindTeacher, in.Kind())

	for _, kind := range []Kind{KindTeacher, KindStudent, KindParent} {
		in, ok := NewInput(kind)
		assert.True(t, ok)
		assert.Equal(t, kind, in.Kind())
	}
	_, ok = NewInput("ADMIN")
	assert.False(t, ok)
}
