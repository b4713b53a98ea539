package academics

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type SubjectInput struct {
	ID       core.NumID `json:"id" form:"id"`
	Name     string     `json:"name" form:"name" validate:"required,max=100"`
	Teachers []string   `json:"teachers" form:"teachers" validate:"omitempty,dive,required"`
}

func (in *SubjectInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	for i, id := range in.Teachers {
		in.Teachers[i] = core.CleanString(id)
	}
	return validate.Struct(in)
}

func (in SubjectInput) Subject() Subject {
	return Subject{ID: int(in.ID), Name: in.Name, TeacherIDs: in.Teachers}
}

type ClassInput struct {
	ID           core.NumID `json:"id" form:"id"`
	Name         string     `json:"name" form:"name" validate:"required,max=100"`
	Capacity     core.NumID `json:"capacity" form:"capacity" validate:"min=1"`
	GradeID      core.NumID `json:"gradeId" form:"gradeId" validate:"min=1"`
	SupervisorID string     `json:"supervisorId" form:"supervisorId"`
}

func (in *ClassInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.SupervisorID = core.CleanString(in.SupervisorID)
	return validate.Struct(in)
}

func (in ClassInput) Class() Class {
	return Class{
		ID:           int(in.ID),
		Name:         in.Name,
		Capacity:     int(in.Capacity),
		GradeID:      int(in.GradeID),
		SupervisorID: core.NullString(in.SupervisorID),
	}
}

type LessonInput struct {
	ID        core.NumID     `json:"id" form:"id"`
	Name      string         `json:"name" form:"name" validate:"required,max=100"`
	Day       Day            `json:"day" form:"day" validate:"required,schoolday"`
	StartTime core.Timestamp `json:"startTime" form:"startTime" validate:"required"`
	EndTime   core.Timestamp `json:"endTime" form:"endTime" validate:"required"`
	SubjectID core.NumID     `json:"subjectId" form:"subjectId" validate:"min=1"`
	ClassID   core.NumID     `json:"classId" form:"classId" validate:"min=1"`
	TeacherID string         `json:"teacherId" form:"teacherId" validate:"required"`
}

func (in *LessonInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Day = Day(core.CleanString(string(in.Day)))
	in.TeacherID = core.CleanString(in.TeacherID)
	return validate.Struct(in)
}

func (in LessonInput) Lesson() Lesson {
	return Lesson{
		ID:        int(in.ID),
		Name:      in.Name,
		Day:       in.Day,
		StartTime: in.StartTime.Time,
		EndTime:   in.EndTime.Time,
		SubjectID: int(in.SubjectID),
		ClassID:   int(in.ClassID),
		TeacherID: in.TeacherID,
	}
}

type ExamInput struct {
	ID        core.NumID     `json:"id" form:"id"`
	Title     string         `json:"title" form:"title" validate:"required,max=255"`
	StartTime core.Timestamp `json:"startTime" form:"startTime" validate:"required"`
	EndTime   core.Timestamp `json:"endTime" form:"endTime" validate:"required"`
	LessonID  core.NumID     `json:"lessonId" form:"lessonId" validate:"min=1"`
}

func (in *ExamInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

func (in ExamInput) Exam() Exam {
	return Exam{
		ID:        int(in.ID),
		Title:     in.Title,
		StartTime: in.StartTime.Time,
		EndTime:   in.EndTime.Time,
		LessonID:  int(in.LessonID),
	}
}

// DeleteForm is the single field form sent to delete a catalog entry.
type DeleteForm struct {
	ID core.NumID `json:"id" form:"id" query:"id"`
}
