package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/academics"
)

type academicsRepository struct {
	exec executor
}

var _ academics.Repository = (*academicsRepository)(nil)

func NewAcademicsRepository(db *sqlx.DB) academics.Repository {
	return &academicsRepository{exec: db}
}

// academicsErr maps constraint violations to academics errors.
func academicsErr(err error, msg string) error {
	if pqErr, ok := pqError(err); ok {
		switch {
		case pqErr.Code == uniqueViolation && pqErr.Table == "grades":
			return academics.ErrGradeExists
		case pqErr.Code == foreignKeyViolation:
			return academics.ErrRelatedNotFound
		}
	}
	return errors.Wrap(err, msg)
}

// deleteByID deletes the row id of table; a foreign key violation is reported as academics.ErrInUse.
func (repo *academicsRepository) deleteByID(ctx context.Context, table string, id int) error {
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == foreignKeyViolation {
			return academics.ErrInUse
		}
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return checkAffected(res, academics.ErrNotFound)
}

func (repo *academicsRepository) CreateGrade(ctx context.Context, g academics.Grade) (academics.Grade, error) {
	if err := repo.exec.GetContext(ctx, &g, `INSERT INTO grades (level) VALUES ($1) RETURNING *`, g.Level); err != nil {
		return academics.Grade{}, academicsErr(err, "inserting grade")
	}
	return g, nil
}

func (repo *academicsRepository) QueryGrades(ctx context.Context) ([]academics.Grade, error) {
	grades := make([]academics.Grade, 0)
	if err := repo.exec.SelectContext(ctx, &grades, `SELECT * FROM grades ORDER BY level`); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

// setSubjectTeachers replaces the teachers of the subject.
func setSubjectTeachers(ctx context.Context, exec executor, subjectID int, teacherIDs []string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE subject_id = $1`, subjectID); err != nil {
		return errors.Wrap(err, "clearing subject teachers")
	}
	if len(teacherIDs) == 0 {
		return nil
	}
	for _, id := range teacherIDs {
		if !isValidUUID(id) {
			return academics.ErrRelatedNotFound
		}
	}
	q := `INSERT INTO teacher_subjects (teacher_id, subject_id)
		SELECT unnest($1::uuid[]), $2 ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, q, pq.Array(teacherIDs), subjectID); err != nil {
		return academicsErr(err, "connecting subject teachers")
	}
	return nil
}

// subjectTeachers returns the teacher ids of each subject, by subject id.
func (repo *academicsRepository) subjectTeachers(ctx context.Context, subjectIDs ...int) (map[int][]string, error) {
	ids := make(pq.Int64Array, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		ids = append(ids, int64(id))
	}
	var rows []struct {
		SubjectID int    `db:"subject_id"`
		TeacherID string `db:"teacher_id"`
	}
	q := `SELECT subject_id, teacher_id FROM teacher_subjects WHERE subject_id = ANY($1) ORDER BY teacher_id`
	if err := repo.exec.SelectContext(ctx, &rows, q, ids); err != nil {
		return nil, errors.Wrap(err, "querying subject teachers")
	}
	teachers := make(map[int][]string, len(subjectIDs))
	for _, r := range rows {
		teachers[r.SubjectID] = append(teachers[r.SubjectID], r.TeacherID)
	}
	return teachers, nil
}

func (repo *academicsRepository) CreateSubject(ctx context.Context, s academics.Subject) (academics.Subject, error) {
	err := withinTx(ctx, repo.exec, func(tx executor) error {
		if err := tx.GetContext(ctx, &s.ID, `INSERT INTO subjects (name) VALUES ($1) RETURNING id`, s.Name); err != nil {
			return academicsErr(err, "inserting subject")
		}
		return setSubjectTeachers(ctx, tx, s.ID, s.TeacherIDs)
	})
	if err != nil {
		return academics.Subject{}, err
	}
	return repo.GetSubject(ctx, s.ID)
}

func (repo *academicsRepository) UpdateSubject(ctx context.Context, s academics.Subject) error {
	return withinTx(ctx, repo.exec, func(tx executor) error {
		res, err := tx.ExecContext(ctx, `UPDATE subjects SET name = $2 WHERE id = $1`, s.ID, s.Name)
		if err != nil {
			return academicsErr(err, "updating subject")
		}
		if err := checkAffected(res, academics.ErrNotFound); err != nil {
			return err
		}
		return setSubjectTeachers(ctx, tx, s.ID, s.TeacherIDs)
	})
}

func (repo *academicsRepository) DeleteSubject(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "subjects", id)
}

func (repo *academicsRepository) GetSubject(ctx context.Context, id int) (academics.Subject, error) {
	var s academics.Subject
	if err := repo.exec.GetContext(ctx, &s, `SELECT * FROM subjects WHERE id = $1`, id); err != nil {
		return academics.Subject{}, trapNoRowsErr(err, academics.ErrNotFound, "finding subject")
	}
	teachers, err := repo.subjectTeachers(ctx, id)
	if err != nil {
		return academics.Subject{}, err
	}
	s.TeacherIDs = teachers[id]
	return s, nil
}

func (repo *academicsRepository) QuerySubjects(ctx context.Context, filter academics.QueryFilter) ([]academics.Subject, error) {
	where := new(whereBuilder)
	if filter.Search != "" {
		where.add("name ILIKE ?", likePattern(filter.Search))
	}
	if filter.TeacherID != "" {
		where.add("id IN (SELECT subject_id FROM teacher_subjects WHERE teacher_id::text = ?)", filter.TeacherID)
	}
	q := fmt.Sprintf("SELECT * FROM subjects%s%s", where, orderByClause(filter.Ordering, "id"))

	subjects := make([]academics.Subject, 0)
	if err := repo.exec.SelectContext(ctx, &subjects, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	ids := make([]int, 0, len(subjects))
	for _, s := range subjects {
		ids = append(ids, s.ID)
	}
	teachers, err := repo.subjectTeachers(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range subjects {
		subjects[i].TeacherIDs = teachers[subjects[i].ID]
	}
	return subjects, nil
}

func checkSupervisor(c academics.Class) error {
	if c.SupervisorID.Valid && !isValidUUID(c.SupervisorID.String) {
		return academics.ErrRelatedNotFound
	}
	return nil
}

func (repo *academicsRepository) CreateClass(ctx context.Context, c academics.Class) (academics.Class, error) {
	if err := checkSupervisor(c); err != nil {
		return academics.Class{}, err
	}
	q := `INSERT INTO classes (name, capacity, grade_id, supervisor_id)
		VALUES ($1, $2, $3, $4) RETURNING *`
	if err := repo.exec.GetContext(ctx, &c, q, c.Name, c.Capacity, c.GradeID, c.SupervisorID); err != nil {
		return academics.Class{}, academicsErr(err, "inserting class")
	}
	return c, nil
}

func (repo *academicsRepository) UpdateClass(ctx context.Context, c academics.Class) error {
	if err := checkSupervisor(c); err != nil {
		return err
	}
	q := `UPDATE classes SET name = :name, capacity = :capacity, grade_id = :grade_id, supervisor_id = :supervisor_id
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, c)
	if err != nil {
		return academicsErr(err, "updating class")
	}
	return checkAffected(res, academics.ErrNotFound)
}

func (repo *academicsRepository) DeleteClass(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "classes", id)
}

func (repo *academicsRepository) GetClass(ctx context.Context, id int) (academics.Class, error) {
	var c academics.Class
	if err := repo.exec.GetContext(ctx, &c, `SELECT * FROM classes WHERE id = $1`, id); err != nil {
		return academics.Class{}, trapNoRowsErr(err, academics.ErrNotFound, "finding class")
	}
	return c, nil
}

func (repo *academicsRepository) QueryClasses(ctx context.Context, filter academics.QueryFilter) ([]academics.Class, error) {
	where := new(whereBuilder)
	if filter.Search != "" {
		where.add("name ILIKE ?", likePattern(filter.Search))
	}
	if filter.TeacherID != "" {
		where.add("supervisor_id::text = ?", filter.TeacherID)
	}
	q := fmt.Sprintf("SELECT * FROM classes%s%s", where, orderByClause(filter.Ordering, "id"))

	classes := make([]academics.Class, 0)
	if err := repo.exec.SelectContext(ctx, &classes, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classes, nil
}

func (repo *academicsRepository) CreateLesson(ctx context.Context, l academics.Lesson) (academics.Lesson, error) {
	if !isValidUUID(l.TeacherID) {
		return academics.Lesson{}, academics.ErrRelatedNotFound
	}
	q := `INSERT INTO lessons (name, day, start_time, end_time, subject_id, class_id, teacher_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING *`
	err := repo.exec.GetContext(ctx, &l, q,
		l.Name, l.Day, l.StartTime.UTC(), l.EndTime.UTC(), l.SubjectID, l.ClassID, l.TeacherID)
	if err != nil {
		return academics.Lesson{}, academicsErr(err, "inserting lesson")
	}
	return l, nil
}

func (repo *academicsRepository) UpdateLesson(ctx context.Context, l academics.Lesson) error {
	if !isValidUUID(l.TeacherID) {
		return academics.ErrRelatedNotFound
	}
	q := `UPDATE lessons SET name = $2, day = $3, start_time = $4, end_time = $5, subject_id = $6, class_id = $7, teacher_id = $8
		WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, q,
		l.ID, l.Name, l.Day, l.StartTime.UTC(), l.EndTime.UTC(), l.SubjectID, l.ClassID, l.TeacherID)
	if err != nil {
		return academicsErr(err, "updating lesson")
	}
	return checkAffected(res, academics.ErrNotFound)
}

func (repo *academicsRepository) DeleteLesson(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "lessons", id)
}

func (repo *academicsRepository) GetLesson(ctx context.Context, id int) (academics.Lesson, error) {
	var l academics.Lesson
	if err := repo.exec.GetContext(ctx, &l, `SELECT * FROM lessons WHERE id = $1`, id); err != nil {
		return academics.Lesson{}, trapNoRowsErr(err, academics.ErrNotFound, "finding lesson")
	}
	return l, nil
}

func (repo *academicsRepository) QueryLessons(ctx context.Context, filter academics.QueryFilter) ([]academics.Lesson, error) {
	where := new(whereBuilder)
	if filter.Search != "" {
		where.add("name ILIKE ?", likePattern(filter.Search))
	}
	if filter.ClassID != 0 {
		where.add("class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id::text = ?", filter.TeacherID)
	}
	q := fmt.Sprintf("SELECT * FROM lessons%s%s", where, orderByClause(filter.Ordering, "id"))

	lessons := make([]academics.Lesson, 0)
	if err := repo.exec.SelectContext(ctx, &lessons, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo *academicsRepository) CreateExam(ctx context.Context, e academics.Exam) (academics.Exam, error) {
	q := `INSERT INTO exams (title, start_time, end_time, lesson_id) VALUES ($1, $2, $3, $4) RETURNING *`
	if err := repo.exec.GetContext(ctx, &e, q, e.Title, e.StartTime.UTC(), e.EndTime.UTC(), e.LessonID); err != nil {
		return academics.Exam{}, academicsErr(err, "inserting exam")
	}
	return e, nil
}

func (repo *academicsRepository) UpdateExam(ctx context.Context, e academics.Exam) error {
	q := `UPDATE exams SET title = $2, start_time = $3, end_time = $4, lesson_id = $5 WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, q, e.ID, e.Title, e.StartTime.UTC(), e.EndTime.UTC(), e.LessonID)
	if err != nil {
		return academicsErr(err, "updating exam")
	}
	return checkAffected(res, academics.ErrNotFound)
}

func (repo *academicsRepository) DeleteExam(ctx context.Context, id int) error {
	return repo.deleteByID(ctx, "exams", id)
}

func (repo *academicsRepository) GetExam(ctx context.Context, id int) (academics.Exam, error) {
	var e academics.Exam
	if err := repo.exec.GetContext(ctx, &e, `SELECT * FROM exams WHERE id = $1`, id); err != nil {
		return academics.Exam{}, trapNoRowsErr(err, academics.ErrNotFound, "finding exam")
	}
	return e, nil
}

func (repo *academicsRepository) QueryExams(ctx context.Context, filter academics.QueryFilter) ([]academics.Exam, error) {
	where := new(whereBuilder)
	if filter.Search != "" {
		where.add("e.title ILIKE ?", likePattern(filter.Search))
	}
	if filter.ClassID != 0 {
		where.add("l.class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		where.add("l.teacher_id::text = ?", filter.TeacherID)
	}
	orderings := make([]string, 0, len(filter.Ordering)+1)
	for _, ord := range filter.Ordering {
		orderings = append(orderings, "e."+ord.String())
	}
	orderings = append(orderings, "e.id")
	q := fmt.Sprintf("SELECT e.* FROM exams e JOIN lessons l ON l.id = e.lesson_id%s ORDER BY %s",
		where, strings.Join(orderings, ", "))

	exams := make([]academics.Exam, 0)
	if err := repo.exec.SelectContext(ctx, &exams, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	return exams, nil
}
