package academics

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	schoolDayTag  = "schoolday"
	schoolDayText = "{0} must be a school day (MONDAY to FRIDAY)"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "{0} must be after startTime"
)

// InitValidators registers the catalog form validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(schoolDayTag, schoolDayValidation)
	core.RegisterCustomTranslation(validate, translator, schoolDayTag, schoolDayText)

	validate.RegisterStructValidation(scheduleStructValidation, LessonInput{}, ExamInput{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

func schoolDayValidation(fl validator.FieldLevel) bool {
	day := Day(fl.Field().String())
	for _, d := range SchoolDays {
		if d == day {
			return true
		}
	}
	return false
}

// scheduleStructValidation checks that lessons and exams end after they start.
func scheduleStructValidation(sl validator.StructLevel) {
	var start, end core.Timestamp
	switch in := sl.Current().Interface().(type) {
	case LessonInput:
		start, end = in.StartTime, in.EndTime
	case ExamInput:
		start, end = in.StartTime, in.EndTime
	default:
		return
	}
	if start.IsZero() || end.IsZero() {
		return
	}
	if !end.After(start.Time) {
		sl.ReportError(end, "endTime", "EndTime", endAfterStartTag, "")
	}
}
