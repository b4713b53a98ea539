package academics

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
)

var SchoolDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

type Grade struct {
	ID    int `json:"id" db:"id"`
	Level int `json:"level" db:"level"`
}

// Subject is taught by any number of teachers.
type Subject struct {
	ID         int      `json:"id" db:"id"`
	Name       string   `json:"name" db:"name"`
	TeacherIDs []string `json:"teachers" db:"-"`
}

type Class struct {
	ID           int         `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Capacity     int         `json:"capacity" db:"capacity"`
	GradeID      int         `json:"gradeId" db:"grade_id"`
	SupervisorID null.String `json:"supervisorId" db:"supervisor_id"`
}

type Lesson struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Day       Day       `json:"day" db:"day"`
	StartTime time.Time `json:"startTime" db:"start_time"`
	EndTime   time.Time `json:"endTime" db:"end_time"`
	SubjectID int       `json:"subjectId" db:"subject_id"`
	ClassID   int       `json:"classId" db:"class_id"`
	TeacherID string    `json:"teacherId" db:"teacher_id"`
}

type Exam struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	StartTime time.Time `json:"startTime" db:"start_time"`
	EndTime   time.Time `json:"endTime" db:"end_time"`
	LessonID  int       `json:"lessonId" db:"lesson_id"`
}

// Ordering fields (json -> column) per entity.
var (
	SubjectOrderingFields = map[string]string{"id": "id", "name": "name"}
	ClassOrderingFields   = map[string]string{"id": "id", "name": "name", "capacity": "capacity"}
	LessonOrderingFields  = map[string]string{"id": "id", "name": "name", "startTime": "start_time"}
	ExamOrderingFields    = map[string]string{"id": "id", "title": "title", "startTime": "start_time"}
)

// QueryFilter narrows listings. Zero values are ignored.
type QueryFilter struct {
	core.QueryFilter
	ClassID   int    `query:"classId"`   // lessons, exams
	TeacherID string `query:"teacherId"` // subjects, classes (supervisor), lessons, exams
}
