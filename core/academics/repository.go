package academics

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound        = errors.New("record not found")
	ErrRelatedNotFound = errors.New("a related record does not exist")
	ErrInUse           = errors.New("record is still referenced by other records")
	ErrGradeExists     = errors.New("a grade with this level already exists")
)

// Repository persists the school catalog.
// Create methods return the record with its generated ID; Update methods return ErrNotFound for unknown IDs.
type Repository interface {
	CreateGrade(ctx context.Context, g Grade) (Grade, error)
	QueryGrades(ctx context.Context) ([]Grade, error)

	// CreateSubject and UpdateSubject set the subject's teachers to s.TeacherIDs.
	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, id int) error
	GetSubject(ctx context.Context, id int) (Subject, error)
	QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error)

	// DeleteClass returns ErrInUse while students are enrolled in the class.
	CreateClass(ctx context.Context, c Class) (Class, error)
	UpdateClass(ctx context.Context, c Class) error
	DeleteClass(ctx context.Context, id int) error
	GetClass(ctx context.Context, id int) (Class, error)
	QueryClasses(ctx context.Context, filter QueryFilter) ([]Class, error)

	CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
	UpdateLesson(ctx context.Context, l Lesson) error
	DeleteLesson(ctx context.Context, id int) error
	GetLesson(ctx context.Context, id int) (Lesson, error)
	QueryLessons(ctx context.Context, filter QueryFilter) ([]Lesson, error)

	CreateExam(ctx context.Context, e Exam) (Exam, error)
	UpdateExam(ctx context.Context, e Exam) error
	DeleteExam(ctx context.Context, id int) error
	GetExam(ctx context.Context, id int) (Exam, error)
	QueryExams(ctx context.Context, filter QueryFilter) ([]Exam, error)
}
