package academics

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// ErrMissingIdentifier is returned when update or delete is called without an id.
var ErrMissingIdentifier = errors.New("missing identifier")

// Service manages the catalog. Mutations report a core.Result and refresh the matching listing.
type Service struct {
	repo        Repository
	invalidator core.Invalidator
	logger      core.Logger
}

func NewService(repo Repository, invalidator core.Invalidator, logger core.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

// Grades

func (svc *Service) CreateGrade(ctx context.Context, level int) (Grade, error) {
	if level < 1 {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "level", Error: "level must be 1 or greater"})
	}
	g, err := svc.repo.CreateGrade(ctx, Grade{Level: level})
	if err != nil {
		return Grade{}, errors.Wrap(err, "creating grade")
	}
	svc.invalidate(ctx, core.ListGradesPath)
	return g, nil
}

func (svc *Service) QueryGrades(ctx context.Context) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, in SubjectInput) core.Result {
	_, err := svc.repo.CreateSubject(ctx, in.Subject())
	return svc.result(ctx, "CreateSubject", core.ListSubjectsPath, err, core.ListTeachersPath)
}

func (svc *Service) UpdateSubject(ctx context.Context, in SubjectInput) core.Result {
	if in.ID < 1 {
		return svc.result(ctx, "UpdateSubject", core.ListSubjectsPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "UpdateSubject", core.ListSubjectsPath, svc.repo.UpdateSubject(ctx, in.Subject()), core.ListTeachersPath)
}

// DeleteSubject also drops the subject's lessons and their exams, and unlinks its teachers.
func (svc *Service) DeleteSubject(ctx context.Context, form DeleteForm) core.Result {
	if form.ID < 1 {
		return svc.result(ctx, "DeleteSubject", core.ListSubjectsPath, ErrMissingIdentifier)
	}
	err := svc.repo.DeleteSubject(ctx, int(form.ID))
	return svc.result(ctx, "DeleteSubject", core.ListSubjectsPath, err, core.ListTeachersPath, core.ListLessonsPath, core.ListExamsPath)
}

func (svc *Service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) QuerySubjects(ctx context.Context, filter QueryFilter) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, in ClassInput) core.Result {
	_, err := svc.repo.CreateClass(ctx, in.Class())
	return svc.result(ctx, "CreateClass", core.ListClassesPath, err)
}

func (svc *Service) UpdateClass(ctx context.Context, in ClassInput) core.Result {
	if in.ID < 1 {
		return svc.result(ctx, "UpdateClass", core.ListClassesPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "UpdateClass", core.ListClassesPath, svc.repo.UpdateClass(ctx, in.Class()))
}

// DeleteClass also drops the class's lessons and their exams.
func (svc *Service) DeleteClass(ctx context.Context, form DeleteForm) core.Result {
	if form.ID < 1 {
		return svc.result(ctx, "DeleteClass", core.ListClassesPath, ErrMissingIdentifier)
	}
	err := svc.repo.DeleteClass(ctx, int(form.ID))
	return svc.result(ctx, "DeleteClass", core.ListClassesPath, err, core.ListLessonsPath, core.ListExamsPath)
}

func (svc *Service) GetClass(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter QueryFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, in LessonInput) core.Result {
	_, err := svc.repo.CreateLesson(ctx, in.Lesson())
	return svc.result(ctx, "CreateLesson", core.ListLessonsPath, err)
}

func (svc *Service) UpdateLesson(ctx context.Context, in LessonInput) core.Result {
	if in.ID < 1 {
		return svc.result(ctx, "UpdateLesson", core.ListLessonsPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "UpdateLesson", core.ListLessonsPath, svc.repo.UpdateLesson(ctx, in.Lesson()))
}

// DeleteLesson also drops the lesson's exams, so both listings are refreshed.
func (svc *Service) DeleteLesson(ctx context.Context, form DeleteForm) core.Result {
	if form.ID < 1 {
		return svc.result(ctx, "DeleteLesson", core.ListLessonsPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "DeleteLesson", core.ListLessonsPath, svc.repo.DeleteLesson(ctx, int(form.ID)), core.ListExamsPath)
}

func (svc *Service) GetLesson(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) QueryLessons(ctx context.Context, filter QueryFilter) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter)
}

// Exams

func (svc *Service) CreateExam(ctx context.Context, in ExamInput) core.Result {
	_, err := svc.repo.CreateExam(ctx, in.Exam())
	return svc.result(ctx, "CreateExam", core.ListExamsPath, err)
}

func (svc *Service) UpdateExam(ctx context.Context, in ExamInput) core.Result {
	if in.ID < 1 {
		return svc.result(ctx, "UpdateExam", core.ListExamsPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "UpdateExam", core.ListExamsPath, svc.repo.UpdateExam(ctx, in.Exam()))
}

func (svc *Service) DeleteExam(ctx context.Context, form DeleteForm) core.Result {
	if form.ID < 1 {
		return svc.result(ctx, "DeleteExam", core.ListExamsPath, ErrMissingIdentifier)
	}
	return svc.result(ctx, "DeleteExam", core.ListExamsPath, svc.repo.DeleteExam(ctx, int(form.ID)))
}

func (svc *Service) GetExam(ctx context.Context, id int) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

func (svc *Service) QueryExams(ctx context.Context, filter QueryFilter) ([]Exam, error) {
	return svc.repo.QueryExams(ctx, filter)
}

// result logs err, or refreshes path (and extra) on success.
func (svc *Service) result(ctx context.Context, op, path string, err error, extra ...string) core.Result {
	if err != nil {
		svc.logger.Error(fmt.Sprintf("academics.%s: %v", op, err), err)
		return core.Failed
	}
	svc.invalidate(ctx, append([]string{path}, extra...)...)
	return core.Succeeded
}

func (svc *Service) invalidate(ctx context.Context, paths ...string) {
	if svc.invalidator == nil {
		return
	}
	if err := svc.invalidator.Invalidate(ctx, paths...); err != nil {
		svc.logger.Warn(fmt.Sprintf("academics: invalidating %v: %v", paths, err), err)
	}
}
