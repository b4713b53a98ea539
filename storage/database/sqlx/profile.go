package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/profile"
)

type profileRepository struct {
	exec executor
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{exec: db}
}

var profileTables = map[profile.Kind]string{
	profile.KindTeacher: "teachers",
	profile.KindStudent: "students",
	profile.KindParent:  "parents",
}

const (
	baseColumns      = "id, username, name, surname, email, phone, address, img"
	baseNamedColumns = ":id, :username, :name, :surname, :email, :phone, :address, :img"
)

// profileErr maps constraint violations to profile errors.
func profileErr(err error, msg string) error {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case uniqueViolation:
			return profile.ErrProfileExists
		case foreignKeyViolation:
			return profile.ErrRelatedNotFound
		}
	}
	return errors.Wrap(err, msg)
}

func setTeacherSubjects(ctx context.Context, exec executor, teacherID string, subjectIDs []int) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return errors.Wrap(err, "clearing teacher subjects")
	}
	if len(subjectIDs) == 0 {
		return nil
	}
	ids := make(pq.Int64Array, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		ids = append(ids, int64(id))
	}
	q := `INSERT INTO teacher_subjects (teacher_id, subject_id)
		SELECT $1, unnest($2::integer[]) ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, q, teacherID, ids); err != nil {
		return profileErr(err, "connecting teacher subjects")
	}
	return nil
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) error {
	if !isValidUUID(p.ProfileID()) {
		return profile.ErrRelatedNotFound
	}
	return withinTx(ctx, repo.exec, func(tx executor) error {
		var q string
		switch v := p.(type) {
		case profile.Teacher:
			q = `INSERT INTO teachers (` + baseColumns + `, blood_type, sex, birthday)
				VALUES (` + baseNamedColumns + `, :blood_type, :sex, :birthday)`
			if _, err := tx.NamedExecContext(ctx, q, v); err != nil {
				return profileErr(err, "inserting teacher")
			}
			return setTeacherSubjects(ctx, tx, v.ID, v.SubjectIDs)
		case profile.Student:
			q = `INSERT INTO students (` + baseColumns + `, blood_type, sex, birthday, grade_id, class_id, parent_id)
				VALUES (` + baseNamedColumns + `, :blood_type, :sex, :birthday, :grade_id, :class_id, :parent_id)`
			if !isValidUUID(v.ParentID) {
				return profile.ErrRelatedNotFound
			}
			_, err := tx.NamedExecContext(ctx, q, v)
			return profileErr(err, "inserting student")
		case profile.Parent:
			q = `INSERT INTO parents (` + baseColumns + `) VALUES (` + baseNamedColumns + `)`
			_, err := tx.NamedExecContext(ctx, q, v)
			return profileErr(err, "inserting parent")
		}
		return errors.Errorf("unknown profile type %T", p)
	})
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.Profile) error {
	if !isValidUUID(p.ProfileID()) {
		return profile.ErrNotFound
	}
	const baseSet = "username = :username, name = :name, surname = :surname, email = :email, phone = :phone, address = :address, img = :img"
	return withinTx(ctx, repo.exec, func(tx executor) error {
		switch v := p.(type) {
		case profile.Teacher:
			q := `UPDATE teachers SET ` + baseSet + `, blood_type = :blood_type, sex = :sex, birthday = :birthday WHERE id = :id`
			if err := namedUpdate(ctx, tx, q, v, "updating teacher"); err != nil {
				return err
			}
			return setTeacherSubjects(ctx, tx, v.ID, v.SubjectIDs)
		case profile.Student:
			if !isValidUUID(v.ParentID) {
				return profile.ErrRelatedNotFound
			}
			q := `UPDATE students SET ` + baseSet + `, blood_type = :blood_type, sex = :sex, birthday = :birthday,
				grade_id = :grade_id, class_id = :class_id, parent_id = :parent_id WHERE id = :id`
			return namedUpdate(ctx, tx, q, v, "updating student")
		case profile.Parent:
			q := `UPDATE parents SET ` + baseSet + ` WHERE id = :id`
			return namedUpdate(ctx, tx, q, v, "updating parent")
		}
		return errors.Errorf("unknown profile type %T", p)
	})
}

func namedUpdate(ctx context.Context, exec executor, q string, arg interface{}, msg string) error {
	res, err := exec.NamedExecContext(ctx, q, arg)
	if err != nil {
		return profileErr(err, msg)
	}
	return checkAffected(res, profile.ErrNotFound)
}

func (repo *profileRepository) DeleteProfile(ctx context.Context, kind profile.Kind, id string) error {
	table, ok := profileTables[kind]
	if !ok || !isValidUUID(id) {
		return profile.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == foreignKeyViolation {
			return profile.ErrProfileInUse
		}
		return errors.Wrap(err, "deleting profile")
	}
	return checkAffected(res, profile.ErrNotFound)
}

func (repo *profileRepository) GetTeacher(ctx context.Context, id string) (profile.Teacher, error) {
	if !isValidUUID(id) {
		return profile.Teacher{}, profile.ErrNotFound
	}
	var tch profile.Teacher
	if err := repo.exec.GetContext(ctx, &tch, `SELECT * FROM teachers WHERE id = $1`, id); err != nil {
		return profile.Teacher{}, trapNoRowsErr(err, profile.ErrNotFound, "finding teacher")
	}
	subjects, err := repo.teacherSubjects(ctx, id)
	if err != nil {
		return profile.Teacher{}, err
	}
	tch.SubjectIDs = subjects[id]
	return tch, nil
}

// teacherSubjects returns the subject ids of each teacher, by teacher id.
func (repo *profileRepository) teacherSubjects(ctx context.Context, teacherIDs ...string) (map[string][]int, error) {
	var rows []struct {
		TeacherID string `db:"teacher_id"`
		SubjectID int    `db:"subject_id"`
	}
	q := `SELECT teacher_id, subject_id FROM teacher_subjects WHERE teacher_id::text = ANY($1) ORDER BY subject_id`
	if err := repo.exec.SelectContext(ctx, &rows, q, pq.Array(teacherIDs)); err != nil {
		return nil, errors.Wrap(err, "querying teacher subjects")
	}
	subjects := make(map[string][]int, len(teacherIDs))
	for _, r := range rows {
		subjects[r.TeacherID] = append(subjects[r.TeacherID], r.SubjectID)
	}
	return subjects, nil
}

func (repo *profileRepository) GetStudent(ctx context.Context, id string) (profile.Student, error) {
	if !isValidUUID(id) {
		return profile.Student{}, profile.ErrNotFound
	}
	var st profile.Student
	if err := repo.exec.GetContext(ctx, &st, `SELECT * FROM students WHERE id = $1`, id); err != nil {
		return profile.Student{}, trapNoRowsErr(err, profile.ErrNotFound, "finding student")
	}
	return st, nil
}

func (repo *profileRepository) GetParent(ctx context.Context, id string) (profile.Parent, error) {
	if !isValidUUID(id) {
		return profile.Parent{}, profile.ErrNotFound
	}
	var par profile.Parent
	if err := repo.exec.GetContext(ctx, &par, `SELECT * FROM parents WHERE id = $1`, id); err != nil {
		return profile.Parent{}, trapNoRowsErr(err, profile.ErrNotFound, "finding parent")
	}
	students, err := repo.parentStudents(ctx, id)
	if err != nil {
		return profile.Parent{}, err
	}
	par.StudentIDs = students[id]
	return par, nil
}

// parentStudents returns the student ids of each parent, by parent id.
func (repo *profileRepository) parentStudents(ctx context.Context, parentIDs ...string) (map[string][]string, error) {
	var rows []struct {
		ParentID  string `db:"parent_id"`
		StudentID string `db:"id"`
	}
	q := `SELECT parent_id, id FROM students WHERE parent_id::text = ANY($1) ORDER BY id`
	if err := repo.exec.SelectContext(ctx, &rows, q, pq.Array(parentIDs)); err != nil {
		return nil, errors.Wrap(err, "querying parent students")
	}
	students := make(map[string][]string, len(parentIDs))
	for _, r := range rows {
		students[r.ParentID] = append(students[r.ParentID], r.StudentID)
	}
	return students, nil
}

func profileWhere(filter profile.QueryFilter) *whereBuilder {
	where := new(whereBuilder)
	if filter.Search != "" {
		val := likePattern(filter.Search)
		where.add("name ILIKE ? OR surname ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val, val)
	}
	return where
}

func profileQuery(table string, where *whereBuilder, filter profile.QueryFilter) string {
	return fmt.Sprintf("SELECT * FROM %s%s%s", table, where, orderByClause(filter.Ordering, "created_at DESC, username"))
}

func (repo *profileRepository) QueryTeachers(ctx context.Context, filter profile.QueryFilter) ([]profile.Teacher, error) {
	where := profileWhere(filter)
	if filter.SubjectID != 0 {
		where.add("id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = ?)", filter.SubjectID)
	}
	teachers := make([]profile.Teacher, 0)
	if err := repo.exec.SelectContext(ctx, &teachers, profileQuery("teachers", where, filter), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}

	ids := make([]string, 0, len(teachers))
	for _, tch := range teachers {
		ids = append(ids, tch.ID)
	}
	subjects, err := repo.teacherSubjects(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range teachers {
		teachers[i].SubjectIDs = subjects[teachers[i].ID]
	}
	return teachers, nil
}

func (repo *profileRepository) QueryStudents(ctx context.Context, filter profile.QueryFilter) ([]profile.Student, error) {
	where := profileWhere(filter)
	if filter.ClassID != 0 {
		where.add("class_id = ?", filter.ClassID)
	}
	if filter.ParentID != "" {
		where.add("parent_id::text = ?", filter.ParentID)
	}
	students := make([]profile.Student, 0)
	if err := repo.exec.SelectContext(ctx, &students, profileQuery("students", where, filter), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *profileRepository) QueryParents(ctx context.Context, filter profile.QueryFilter) ([]profile.Parent, error) {
	where := profileWhere(filter)
	parents := make([]profile.Parent, 0)
	if err := repo.exec.SelectContext(ctx, &parents, profileQuery("parents", where, filter), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}

	ids := make([]string, 0, len(parents))
	for _, par := range parents {
		ids = append(ids, par.ID)
	}
	students, err := repo.parentStudents(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range parents {
		parents[i].StudentIDs = students[parents[i].ID]
	}
	return parents, nil
}
