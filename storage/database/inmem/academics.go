package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
)

type academicsRepository struct {
	conn
}

var _ academics.Repository = (*academicsRepository)(nil)

func NewAcademicsRepository(db *DB) academics.Repository {
	return &academicsRepository{conn: conn{db: db}}
}

var idOrdering = core.DBOrdering{Field: "id", Ascending: true}

// Grades

func (repo *academicsRepository) CreateGrade(_ context.Context, g academics.Grade) (academics.Grade, error) {
	err := repo.apply(func(t *tables) error {
		for _, existing := range t.grades {
			if existing.Level == g.Level {
				return academics.ErrGradeExists
			}
		}
		g.ID = t.nextID()
		t.grades[g.ID] = g
		return nil
	})
	if err != nil {
		return academics.Grade{}, err
	}
	return g, nil
}

func (repo *academicsRepository) QueryGrades(_ context.Context) ([]academics.Grade, error) {
	t, unlock := repo.read()
	defer unlock()

	grades := make([]academics.Grade, 0, len(t.grades))
	for _, g := range t.grades {
		grades = append(grades, g)
	}
	orderBy(&grades, nil, core.DBOrdering{Field: "level", Ascending: true})
	return grades, nil
}

// Subjects

func subjectTeachers(t *tables, subjectID int) []string {
	var ids []string
	for _, tch := range t.teachers {
		if hasInt(tch.SubjectIDs, subjectID) {
			ids = append(ids, tch.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// setSubjectTeachers makes teacherIDs the exact set of teachers of subjectID.
func setSubjectTeachers(t *tables, subjectID int, teacherIDs []string) error {
	want := make(map[string]struct{}, len(teacherIDs))
	for _, id := range teacherIDs {
		if _, ok := t.teachers[id]; !ok {
			return academics.ErrRelatedNotFound
		}
		want[id] = struct{}{}
	}
	for id, tch := range t.teachers {
		_, keep := want[id]
		has := hasInt(tch.SubjectIDs, subjectID)
		switch {
		case keep && !has:
			tch.SubjectIDs = uniqueInts(append(append([]int(nil), tch.SubjectIDs...), subjectID))
		case !keep && has:
			tch.SubjectIDs = removeInt(tch.SubjectIDs, subjectID)
		default:
			continue
		}
		t.teachers[id] = tch
	}
	return nil
}

func removeInt(ids []int, id int) []int {
	var out []int
	for _, i := range ids {
		if i != id {
			out = append(out, i)
		}
	}
	return out
}

func (repo *academicsRepository) CreateSubject(_ context.Context, s academics.Subject) (academics.Subject, error) {
	err := repo.apply(func(t *tables) error {
		s.ID = t.nextID()
		if err := setSubjectTeachers(t, s.ID, s.TeacherIDs); err != nil {
			return err
		}
		s.TeacherIDs = nil
		t.subjects[s.ID] = s
		s.TeacherIDs = subjectTeachers(t, s.ID)
		return nil
	})
	if err != nil {
		return academics.Subject{}, err
	}
	return s, nil
}

func (repo *academicsRepository) UpdateSubject(_ context.Context, s academics.Subject) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.subjects[s.ID]; !ok {
			return academics.ErrNotFound
		}
		if err := setSubjectTeachers(t, s.ID, s.TeacherIDs); err != nil {
			return err
		}
		s.TeacherIDs = nil
		t.subjects[s.ID] = s
		return nil
	})
}

func (repo *academicsRepository) DeleteSubject(_ context.Context, id int) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.subjects[id]; !ok {
			return academics.ErrNotFound
		}
		if err := setSubjectTeachers(t, id, nil); err != nil {
			return err
		}
		for lid, lsn := range t.lessons {
			if lsn.SubjectID == id {
				deleteLesson(t, lid)
			}
		}
		delete(t.subjects, id)
		return nil
	})
}

func (repo *academicsRepository) GetSubject(_ context.Context, id int) (academics.Subject, error) {
	t, unlock := repo.read()
	defer unlock()
	if s, ok := t.subjects[id]; ok {
		s.TeacherIDs = subjectTeachers(t, id)
		return s, nil
	}
	return academics.Subject{}, academics.ErrNotFound
}

func (repo *academicsRepository) QuerySubjects(_ context.Context, filter academics.QueryFilter) ([]academics.Subject, error) {
	t, unlock := repo.read()
	defer unlock()

	subjects := make([]academics.Subject, 0, len(t.subjects))
	for _, s := range t.subjects {
		if !matches(filter.Search, s.Name) {
			continue
		}
		s.TeacherIDs = subjectTeachers(t, s.ID)
		if filter.TeacherID != "" && !hasString(s.TeacherIDs, filter.TeacherID) {
			continue
		}
		subjects = append(subjects, s)
	}
	orderBy(&subjects, filter.Ordering, idOrdering)
	return subjects, nil
}

func hasString(ids []string, id string) bool {
	for _, s := range ids {
		if s == id {
			return true
		}
	}
	return false
}

// Classes

func checkClassRelations(t *tables, c academics.Class) error {
	if _, ok := t.grades[c.GradeID]; !ok {
		return academics.ErrRelatedNotFound
	}
	if c.SupervisorID.Valid {
		if _, ok := t.teachers[c.SupervisorID.String]; !ok {
			return academics.ErrRelatedNotFound
		}
	}
	return nil
}

func (repo *academicsRepository) CreateClass(_ context.Context, c academics.Class) (academics.Class, error) {
	err := repo.apply(func(t *tables) error {
		if err := checkClassRelations(t, c); err != nil {
			return err
		}
		c.ID = t.nextID()
		t.classes[c.ID] = c
		return nil
	})
	if err != nil {
		return academics.Class{}, err
	}
	return c, nil
}

func (repo *academicsRepository) UpdateClass(_ context.Context, c academics.Class) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.classes[c.ID]; !ok {
			return academics.ErrNotFound
		}
		if err := checkClassRelations(t, c); err != nil {
			return err
		}
		t.classes[c.ID] = c
		return nil
	})
}

func (repo *academicsRepository) DeleteClass(_ context.Context, id int) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.classes[id]; !ok {
			return academics.ErrNotFound
		}
		for _, st := range t.students {
			if st.ClassID == id {
				return academics.ErrInUse
			}
		}
		for lid, lsn := range t.lessons {
			if lsn.ClassID == id {
				deleteLesson(t, lid)
			}
		}
		delete(t.classes, id)
		return nil
	})
}

func (repo *academicsRepository) GetClass(_ context.Context, id int) (academics.Class, error) {
	t, unlock := repo.read()
	defer unlock()
	if c, ok := t.classes[id]; ok {
		return c, nil
	}
	return academics.Class{}, academics.ErrNotFound
}

func (repo *academicsRepository) QueryClasses(_ context.Context, filter academics.QueryFilter) ([]academics.Class, error) {
	t, unlock := repo.read()
	defer unlock()

	classes := make([]academics.Class, 0, len(t.classes))
	for _, c := range t.classes {
		if !matches(filter.Search, c.Name) {
			continue
		}
		if filter.TeacherID != "" && c.SupervisorID.String != filter.TeacherID {
			continue
		}
		classes = append(classes, c)
	}
	orderBy(&classes, filter.Ordering, idOrdering)
	return classes, nil
}

// Lessons

func checkLessonRelations(t *tables, l academics.Lesson) error {
	if _, ok := t.subjects[l.SubjectID]; !ok {
		return academics.ErrRelatedNotFound
	}
	if _, ok := t.classes[l.ClassID]; !ok {
		return academics.ErrRelatedNotFound
	}
	if _, ok := t.teachers[l.TeacherID]; !ok {
		return academics.ErrRelatedNotFound
	}
	return nil
}

// deleteLesson removes a lesson and its exams.
func deleteLesson(t *tables, id int) {
	for eid, ex := range t.exams {
		if ex.LessonID == id {
			delete(t.exams, eid)
		}
	}
	delete(t.lessons, id)
}

func (repo *academicsRepository) CreateLesson(_ context.Context, l academics.Lesson) (academics.Lesson, error) {
	err := repo.apply(func(t *tables) error {
		if err := checkLessonRelations(t, l); err != nil {
			return err
		}
		l.ID = t.nextID()
		t.lessons[l.ID] = l
		return nil
	})
	if err != nil {
		return academics.Lesson{}, err
	}
	return l, nil
}

func (repo *academicsRepository) UpdateLesson(_ context.Context, l academics.Lesson) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.lessons[l.ID]; !ok {
			return academics.ErrNotFound
		}
		if err := checkLessonRelations(t, l); err != nil {
			return err
		}
		t.lessons[l.ID] = l
		return nil
	})
}

func (repo *academicsRepository) DeleteLesson(_ context.Context, id int) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.lessons[id]; !ok {
			return academics.ErrNotFound
		}
		deleteLesson(t, id)
		return nil
	})
}

func (repo *academicsRepository) GetLesson(_ context.Context, id int) (academics.Lesson, error) {
	t, unlock := repo.read()
	defer unlock()
	if l, ok := t.lessons[id]; ok {
		return l, nil
	}
	return academics.Lesson{}, academics.ErrNotFound
}

func (repo *academicsRepository) QueryLessons(_ context.Context, filter academics.QueryFilter) ([]academics.Lesson, error) {
	t, unlock := repo.read()
	defer unlock()

	lessons := make([]academics.Lesson, 0, len(t.lessons))
	for _, l := range t.lessons {
		if !matches(filter.Search, l.Name) {
			continue
		}
		if filter.ClassID != 0 && l.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID != "" && l.TeacherID != filter.TeacherID {
			continue
		}
		lessons = append(lessons, l)
	}
	orderBy(&lessons, filter.Ordering, idOrdering)
	return lessons, nil
}

// Exams

func (repo *academicsRepository) CreateExam(_ context.Context, e academics.Exam) (academics.Exam, error) {
	err := repo.apply(func(t *tables) error {
		if _, ok := t.lessons[e.LessonID]; !ok {
			return academics.ErrRelatedNotFound
		}
		e.ID = t.nextID()
		t.exams[e.ID] = e
		return nil
	})
	if err != nil {
		return academics.Exam{}, err
	}
	return e, nil
}

func (repo *academicsRepository) UpdateExam(_ context.Context, e academics.Exam) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.exams[e.ID]; !ok {
			return academics.ErrNotFound
		}
		if _, ok := t.lessons[e.LessonID]; !ok {
			return academics.ErrRelatedNotFound
		}
		t.exams[e.ID] = e
		return nil
	})
}

func (repo *academicsRepository) DeleteExam(_ context.Context, id int) error {
	return repo.apply(func(t *tables) error {
		if _, ok := t.exams[id]; !ok {
			return academics.ErrNotFound
		}
		delete(t.exams, id)
		return nil
	})
}

func (repo *academicsRepository) GetExam(_ context.Context, id int) (academics.Exam, error) {
	t, unlock := repo.read()
	defer unlock()
	if e, ok := t.exams[id]; ok {
		return e, nil
	}
	return academics.Exam{}, academics.ErrNotFound
}

func (repo *academicsRepository) QueryExams(_ context.Context, filter academics.QueryFilter) ([]academics.Exam, error) {
	t, unlock := repo.read()
	defer unlock()

	exams := make([]academics.Exam, 0, len(t.exams))
	for _, e := range t.exams {
		if !matches(filter.Search, e.Title) {
			continue
		}
		lsn := t.lessons[e.LessonID]
		if filter.ClassID != 0 && lsn.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID != "" && lsn.TeacherID != filter.TeacherID {
			continue
		}
		exams = append(exams, e)
	}
	orderBy(&exams, filter.Ordering, idOrdering)
	return exams, nil
}
