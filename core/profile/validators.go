package profile

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

var (
	sexTag  = "sex"
	sexText = "{0} must be one of MALE or FEMALE"

	pwdRequiredTag  = "pwdrequired"
	pwdRequiredText = "password is required"

	phoneRequiredTag  = "phonerequired"
	phoneRequiredText = "phone is required"

	// bcrypt only reads the first 72 bytes
	pwdMaxBytes    = 72
	pwdTooLongTag  = "pwdtoolong"
	pwdTooLongText = "password cannot be longer than 72 bytes"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to username or email"
)

// InitValidators registers the profile form validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sexTag, sexValidation)
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)

	validate.RegisterStructValidation(inputStructValidation, TeacherInput{}, StudentInput{}, ParentInput{})
	core.RegisterCustomTranslation(validate, translator, pwdRequiredTag, pwdRequiredText)
	core.RegisterCustomTranslation(validate, translator, phoneRequiredTag, phoneRequiredText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdTooLongTag, pwdTooLongText)
}

func sexValidation(fl validator.FieldLevel) bool {
	switch Sex(fl.Field().String()) {
	case SexMale, SexFemale:
		return true
	}
	return false
}

// inputStructValidation does struct level validation on the profile inputs.
func inputStructValidation(sl validator.StructLevel) {
	var in BaseInput
	switch v := sl.Current().Interface().(type) {
	case TeacherInput:
		in = v.BaseInput
	case StudentInput:
		in = v.BaseInput
	case ParentInput:
		in = v.BaseInput
		if in.Phone == "" {
			sl.ReportError(in.Phone, "phone", "Phone", phoneRequiredTag, "")
		}
	default:
		return
	}
	validatePassword(in, sl)
}

// validatePassword requires a password on creation (no ID) and rejects one too long for bcrypt
// or too close to the username or email.
func validatePassword(in BaseInput, sl validator.StructLevel) {
	if in.Password == "" {
		if in.ID == "" {
			sl.ReportError(in.Password, "password", "Password", pwdRequiredTag, "")
		}
		return
	}
	if len(in.Password) > pwdMaxBytes {
		sl.ReportError(in.Password, "password", "Password", pwdTooLongTag, "")
		return
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(in.Password)
	if getRatio(lpwd, in.Username) >= pwdMaxSim || getRatio(lpwd, in.Email) >= pwdMaxSim {
		sl.ReportError(in.Password, "password", "Password", pwdAttrSimTag, "")
	}
}
