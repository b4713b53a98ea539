package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/profile"
)

type profileRepository struct {
	conn
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{conn: conn{db: db}}
}

var profileFallbackOrdering = []core.DBOrdering{
	{Field: "created_at", Ascending: false},
	{Field: "username", Ascending: true},
}

func profileExists(t *tables, id string) bool {
	_, isTeacher := t.teachers[id]
	_, isStudent := t.students[id]
	_, isParent := t.parents[id]
	return isTeacher || isStudent || isParent
}

func sameValue(a, b null.String) bool {
	return a.Valid && b.Valid && a.String == b.String
}

// collides reports whether other holds a username, email or phone of b.
func collides(other, b profile.Base) bool {
	if other.ID == b.ID {
		return false
	}
	return other.Username == b.Username || sameValue(other.Email, b.Email) || sameValue(other.Phone, b.Phone)
}

// checkUnique enforces the unique columns of the profile's table.
func checkUnique(t *tables, p profile.Profile) error {
	switch v := p.(type) {
	case profile.Teacher:
		for _, other := range t.teachers {
			if collides(other.Base, v.Base) {
				return profile.ErrProfileExists
			}
		}
	case profile.Student:
		for _, other := range t.students {
			if collides(other.Base, v.Base) {
				return profile.ErrProfileExists
			}
		}
	case profile.Parent:
		for _, other := range t.parents {
			if collides(other.Base, v.Base) {
				return profile.ErrProfileExists
			}
		}
	}
	return nil
}

// uniqueInts returns ids without duplicates, sorted.
func uniqueInts(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

func checkTeacherRelations(t *tables, tch profile.Teacher) error {
	for _, sid := range tch.SubjectIDs {
		if _, ok := t.subjects[sid]; !ok {
			return profile.ErrRelatedNotFound
		}
	}
	return nil
}

func checkStudentRelations(t *tables, st profile.Student) error {
	if _, ok := t.grades[st.GradeID]; !ok {
		return profile.ErrRelatedNotFound
	}
	if _, ok := t.classes[st.ClassID]; !ok {
		return profile.ErrRelatedNotFound
	}
	if _, ok := t.parents[st.ParentID]; !ok {
		return profile.ErrRelatedNotFound
	}
	return nil
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) error {
	return repo.apply(func(t *tables) error {
		id := p.ProfileID()
		if _, ok := t.accounts[id]; !ok {
			return profile.ErrRelatedNotFound
		}
		if profileExists(t, id) {
			return profile.ErrProfileExists
		}
		if err := checkUnique(t, p); err != nil {
			return err
		}
		now := time.Now().UTC()

		switch v := p.(type) {
		case profile.Teacher:
			v.SubjectIDs = uniqueInts(v.SubjectIDs)
			if err := checkTeacherRelations(t, v); err != nil {
				return err
			}
			v.CreatedAt = now
			t.teachers[id] = v
		case profile.Student:
			if err := checkStudentRelations(t, v); err != nil {
				return err
			}
			v.CreatedAt = now
			t.students[id] = v
		case profile.Parent:
			v.StudentIDs = nil
			v.CreatedAt = now
			t.parents[id] = v
		default:
			return profile.ErrNotFound
		}
		return nil
	})
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile) error {
	return repo.apply(func(t *tables) error {
		id := p.ProfileID()
		switch v := p.(type) {
		case profile.Teacher:
			orig, ok := t.teachers[id]
			if !ok {
				return profile.ErrNotFound
			}
			if err := checkUnique(t, v); err != nil {
				return err
			}
			v.SubjectIDs = uniqueInts(v.SubjectIDs)
			if err := checkTeacherRelations(t, v); err != nil {
				return err
			}
			v.CreatedAt = orig.CreatedAt
			t.teachers[id] = v
		case profile.Student:
			orig, ok := t.students[id]
			if !ok {
				return profile.ErrNotFound
			}
			if err := checkUnique(t, v); err != nil {
				return err
			}
			if err := checkStudentRelations(t, v); err != nil {
				return err
			}
			v.CreatedAt = orig.CreatedAt
			t.students[id] = v
		case profile.Parent:
			orig, ok := t.parents[id]
			if !ok {
				return profile.ErrNotFound
			}
			if err := checkUnique(t, v); err != nil {
				return err
			}
			v.StudentIDs = nil
			v.CreatedAt = orig.CreatedAt
			t.parents[id] = v
		default:
			return profile.ErrNotFound
		}
		return nil
	})
}

func (repo *profileRepository) DeleteProfile(_ context.Context, kind profile.Kind, id string) error {
	return repo.apply(func(t *tables) error {
		switch kind {
		case profile.KindTeacher:
			if _, ok := t.teachers[id]; !ok {
				return profile.ErrNotFound
			}
			for cid, cls := range t.classes {
				if cls.SupervisorID.Valid && cls.SupervisorID.String == id {
					cls.SupervisorID.Valid, cls.SupervisorID.String = false, ""
					t.classes[cid] = cls
				}
			}
			for lid, lsn := range t.lessons {
				if lsn.TeacherID == id {
					deleteLesson(t, lid)
				}
			}
			delete(t.teachers, id)
		case profile.KindStudent:
			if _, ok := t.students[id]; !ok {
				return profile.ErrNotFound
			}
			delete(t.students, id)
		case profile.KindParent:
			if _, ok := t.parents[id]; !ok {
				return profile.ErrNotFound
			}
			for _, st := range t.students {
				if st.ParentID == id {
					return profile.ErrProfileInUse
				}
			}
			delete(t.parents, id)
		default:
			return profile.ErrNotFound
		}
		return nil
	})
}

func (repo *profileRepository) GetTeacher(_ context.Context, id string) (profile.Teacher, error) {
	t, unlock := repo.read()
	defer unlock()
	if tch, ok := t.teachers[id]; ok {
		tch.SubjectIDs = append([]int(nil), tch.SubjectIDs...)
		return tch, nil
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *profileRepository) GetStudent(_ context.Context, id string) (profile.Student, error) {
	t, unlock := repo.read()
	defer unlock()
	if st, ok := t.students[id]; ok {
		return st, nil
	}
	return profile.Student{}, profile.ErrNotFound
}

func (repo *profileRepository) GetParent(_ context.Context, id string) (profile.Parent, error) {
	t, unlock := repo.read()
	defer unlock()
	if par, ok := t.parents[id]; ok {
		par.StudentIDs = parentStudents(t, id)
		return par, nil
	}
	return profile.Parent{}, profile.ErrNotFound
}

func parentStudents(t *tables, parentID string) []string {
	var ids []string
	for _, st := range t.students {
		if st.ParentID == parentID {
			ids = append(ids, st.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func baseMatches(b profile.Base, search string) bool {
	return matches(search, b.Name, b.Surname, b.Username, b.Email.String)
}

func hasInt(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

func (repo *profileRepository) QueryTeachers(_ context.Context, filter profile.QueryFilter) ([]profile.Teacher, error) {
	t, unlock := repo.read()
	defer unlock()

	teachers := make([]profile.Teacher, 0, len(t.teachers))
	for _, tch := range t.teachers {
		if !baseMatches(tch.Base, filter.Search) {
			continue
		}
		if filter.SubjectID != 0 && !hasInt(tch.SubjectIDs, filter.SubjectID) {
			continue
		}
		tch.SubjectIDs = append([]int(nil), tch.SubjectIDs...)
		teachers = append(teachers, tch)
	}
	orderBy(&teachers, filter.Ordering, profileFallbackOrdering...)
	return teachers, nil
}

func (repo *profileRepository) QueryStudents(_ context.Context, filter profile.QueryFilter) ([]profile.Student, error) {
	t, unlock := repo.read()
	defer unlock()

	students := make([]profile.Student, 0, len(t.students))
	for _, st := range t.students {
		if !baseMatches(st.Base, filter.Search) {
			continue
		}
		if filter.ClassID != 0 && st.ClassID != filter.ClassID {
			continue
		}
		if filter.ParentID != "" && st.ParentID != filter.ParentID {
			continue
		}
		students = append(students, st)
	}
	orderBy(&students, filter.Ordering, profileFallbackOrdering...)
	return students, nil
}

func (repo *profileRepository) QueryParents(_ context.Context, filter profile.QueryFilter) ([]profile.Parent, error) {
	t, unlock := repo.read()
	defer unlock()

	parents := make([]profile.Parent, 0, len(t.parents))
	for _, par := range t.parents {
		if !baseMatches(par.Base, filter.Search) {
			continue
		}
		par.StudentIDs = parentStudents(t, par.ID)
		parents = append(parents, par)
	}
	orderBy(&parents, filter.Ordering, profileFallbackOrdering...)
	return parents, nil
}
