package profile

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Credentials are the Account side of an Input.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Input is a shaped payload for one profile kind, as produced by the validation contract.
type Input interface {
	Kind() Kind
	Identifier() string
	Credentials() Credentials
	// Profile builds the record to persist under id; empty optional fields resolve to NULL.
	Profile(id string) Profile
	Validate(validate *validator.Validate) error
}

// BaseInput holds the fields shared by every profile form.
// Password is required when ID is empty (creation) and optional otherwise.
type BaseInput struct {
	ID       string `json:"id" form:"id"`
	Username string `json:"username" form:"username" validate:"min=3,max=60"`
	Password string `json:"password" form:"password" validate:"omitempty,min=8"`
	Name     string `json:"name" form:"name" validate:"required"`
	Surname  string `json:"surname" form:"surname" validate:"required"`
	Email    string `json:"email" form:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" form:"phone"`
	Address  string `json:"address" form:"address"`
	Img      string `json:"img" form:"img"`
}

func (in *BaseInput) clean() {
	in.ID = core.CleanString(in.ID)
	in.Username = core.CleanString(in.Username, true /* lower */)
	in.Name = core.CleanString(in.Name)
	in.Surname = core.CleanString(in.Surname)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.Phone = core.CleanString(in.Phone)
	in.Address = core.CleanString(in.Address)
	in.Img = core.CleanString(in.Img)
}

func (in BaseInput) Identifier() string { return in.ID }

func (in BaseInput) Credentials() Credentials {
	return Credentials{Username: in.Username, Email: in.Email, Password: in.Password}
}

func (in BaseInput) base(id string) Base {
	return Base{
		ID:       id,
		Username: in.Username,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    core.NullString(in.Email),
		Phone:    core.NullString(in.Phone),
		Address:  in.Address,
		Img:      core.NullString(in.Img),
	}
}

type TeacherInput struct {
	BaseInput
	BloodType string       `json:"bloodType" form:"bloodType" validate:"required,max=3"`
	Sex       Sex          `json:"sex" form:"sex" validate:"required,sex"`
	Birthday  core.Date    `json:"birthday" form:"birthday" validate:"required"`
	Subjects  []core.NumID `json:"subjects" form:"subjects" validate:"omitempty,dive,min=1"`
}

func (in *TeacherInput) Kind() Kind { return KindTeacher }

func (in *TeacherInput) Profile(id string) Profile {
	return Teacher{
		Base:       in.base(id),
		BloodType:  in.BloodType,
		Sex:        in.Sex,
		Birthday:   in.Birthday.Time,
		SubjectIDs: core.Ints(in.Subjects),
	}
}

func (in *TeacherInput) Validate(validate *validator.Validate) error {
	in.clean()
	in.BloodType = core.CleanString(in.BloodType)
	return validate.Struct(in)
}

type StudentInput struct {
	BaseInput
	BloodType string     `json:"bloodType" form:"bloodType" validate:"required,max=3"`
	Sex       Sex        `json:"sex" form:"sex" validate:"required,sex"`
	Birthday  core.Date  `json:"birthday" form:"birthday" validate:"required"`
	GradeID   core.NumID `json:"gradeId" form:"gradeId" validate:"min=1"`
	ClassID   core.NumID `json:"classId" form:"classId" validate:"min=1"`
	ParentID  string     `json:"parentId" form:"parentId" validate:"required"`
}

func (in *StudentInput) Kind() Kind { return KindStudent }

func (in *StudentInput) Profile(id string) Profile {
	return Student{
		Base:      in.base(id),
		BloodType: in.BloodType,
		Sex:       in.Sex,
		Birthday:  in.Birthday.Time,
		GradeID:   int(in.GradeID),
		ClassID:   int(in.ClassID),
		ParentID:  in.ParentID,
	}
}

func (in *StudentInput) Validate(validate *validator.Validate) error {
	in.clean()
	in.BloodType = core.CleanString(in.BloodType)
	in.ParentID = core.CleanString(in.ParentID)
	return validate.Struct(in)
}

// ParentInput requires a phone number.
type ParentInput struct {
	BaseInput
}

func (in *ParentInput) Kind() Kind { return KindParent }

func (in *ParentInput) Profile(id string) Profile {
	return Parent{Base: in.base(id)}
}

func (in *ParentInput) Validate(validate *validator.Validate) error {
	in.clean()
	return validate.Struct(in)
}

// NewInput returns an empty Input of the given kind, ready to be bound.
func NewInput(kind Kind) (Input, bool) {
	switch kind {
	case KindTeacher:
		return new(TeacherInput), true
	case KindStudent:
		return new(StudentInput), true
	case KindParent:
		return new(ParentInput), true
	}
	return nil, false
}
