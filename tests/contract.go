package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
)

// Repos are the repositories of one storage engine, sharing a database.
type Repos struct {
	Accounts  account.Repository
	Profiles  profile.Repository
	Academics academics.Repository
	Tx        provision.Transactor
}

var errAbort = errors.New("abort")

func teacher(acc account.Account, name string, subjectIDs ...int) profile.Teacher {
	return profile.Teacher{
		Base:       profile.Base{ID: acc.ID, Username: acc.Username, Name: name, Surname: "Snape", Email: acc.Email, Address: "Dungeons"},
		BloodType:  "O-",
		Sex:        profile.SexMale,
		Birthday:   time.Date(1960, 1, 9, 0, 0, 0, 0, time.UTC),
		SubjectIDs: subjectIDs,
	}
}

// RunRepositoryContract checks the behaviour every storage engine must share.
// newRepos is called once per subtest and must return empty repositories.
func RunRepositoryContract(t *testing.T, newRepos func(t *testing.T) Repos) {
	ctx := context.Background()

	t.Run("profile requires its account", func(t *testing.T) {
		r := newRepos(t)
		err := r.Profiles.CreateProfile(ctx, teacher(account.Account{ID: uuid.NewString(), Username: "ghost"}, "Nearly"))
		assert.Equal(t, profile.ErrRelatedNotFound, errors.Cause(err))
	})

	t.Run("one profile per account", func(t *testing.T) {
		r := newRepos(t)
		acc := CreateAccount(t, r.Accounts, "msnape", "", "potionsmaster1", account.RoleTeacher, true)
		require.NoError(t, r.Profiles.CreateProfile(ctx, teacher(acc, "Severus")))
		err := r.Profiles.CreateProfile(ctx, teacher(acc, "Severus"))
		assert.Equal(t, profile.ErrProfileExists, errors.Cause(err))
	})

	t.Run("profile contact details are unique per kind", func(t *testing.T) {
		r := newRepos(t)
		parent := func(acc account.Account, phone, email string) profile.Parent {
			return profile.Parent{Base: profile.Base{
				ID:       acc.ID,
				Username: acc.Username,
				Name:     "Weasley",
				Surname:  "Weasley",
				Email:    core.NullString(email),
				Phone:    core.NullString(phone),
			}}
		}
		molly := CreateAccount(t, r.Accounts, "mweasley", "", "burrow1234", account.RoleParent, true)
		arthur := CreateAccount(t, r.Accounts, "aweasley", "", "burrow1234", account.RoleParent, true)
		require.NoError(t, r.Profiles.CreateProfile(ctx, parent(molly, "+44 1", "molly@burrow.test")))

		err := r.Profiles.CreateProfile(ctx, parent(arthur, "+44 1", ""))
		assert.Equal(t, profile.ErrProfileExists, errors.Cause(err))
		err = r.Profiles.CreateProfile(ctx, parent(arthur, "+44 2", "molly@burrow.test"))
		assert.Equal(t, profile.ErrProfileExists, errors.Cause(err))
		require.NoError(t, r.Profiles.CreateProfile(ctx, parent(arthur, "+44 2", "")))

		// keeping its own phone is fine, taking another's is not
		require.NoError(t, r.Profiles.UpdateProfile(ctx, parent(molly, "+44 1", "")))
		err = r.Profiles.UpdateProfile(ctx, parent(arthur, "+44 1", ""))
		assert.Equal(t, profile.ErrProfileExists, errors.Cause(err))

		// teachers are a table of their own, and a missing phone is no conflict
		snape := CreateAccount(t, r.Accounts, "msnape", "", "potionsmaster1", account.RoleTeacher, true)
		slughorn := CreateAccount(t, r.Accounts, "hslughorn", "", "potionsmaster1", account.RoleTeacher, true)
		tch := teacher(snape, "Severus")
		tch.Phone = core.NullString("+44 2")
		require.NoError(t, r.Profiles.CreateProfile(ctx, tch))
		require.NoError(t, r.Profiles.CreateProfile(ctx, teacher(slughorn, "Horace")))
	})

	t.Run("account uniqueness", func(t *testing.T) {
		r := newRepos(t)
		acc := CreateAccount(t, r.Accounts, "msnape", "severus@hogwarts.test", "potionsmaster1", account.RoleTeacher, true)

		assert.Equal(t, account.ErrUsernameExists, errors.Cause(r.Accounts.CheckUniqueness(ctx, "msnape", "")))
		assert.Equal(t, account.ErrEmailExists, errors.Cause(r.Accounts.CheckUniqueness(ctx, "hslughorn", "severus@hogwarts.test")))
		assert.NoError(t, r.Accounts.CheckUniqueness(ctx, "msnape", "severus@hogwarts.test", acc.ID))

		_, err := r.Accounts.CreateAccount(ctx, account.Account{
			Username:  "msnape",
			Role:      account.RoleTeacher,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		})
		assert.Equal(t, account.ErrUsernameExists, errors.Cause(err))
	})

	t.Run("teacher subjects are a set", func(t *testing.T) {
		r := newRepos(t)
		potions := CreateSubject(t, r.Academics, "Potions")
		dada := CreateSubject(t, r.Academics, "Defence Against the Dark Arts")
		herbology := CreateSubject(t, r.Academics, "Herbology")
		acc := CreateAccount(t, r.Accounts, "msnape", "", "potionsmaster1", account.RoleTeacher, true)

		require.NoError(t, r.Profiles.CreateProfile(ctx, teacher(acc, "Severus", dada.ID, potions.ID, potions.ID)))
		tch, err := r.Profiles.GetTeacher(ctx, acc.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{potions.ID, dada.ID}, tch.SubjectIDs)

		require.NoError(t, r.Profiles.UpdateProfile(ctx, teacher(acc, "Severus", herbology.ID)))
		tch, err = r.Profiles.GetTeacher(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{herbology.ID}, tch.SubjectIDs)

		subj, err := r.Academics.GetSubject(ctx, herbology.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{acc.ID}, subj.TeacherIDs)

		require.NoError(t, r.Profiles.UpdateProfile(ctx, teacher(acc, "Severus")))
		tch, err = r.Profiles.GetTeacher(ctx, acc.ID)
		require.NoError(t, err)
		assert.Empty(t, tch.SubjectIDs)

		err = r.Profiles.UpdateProfile(ctx, teacher(acc, "Severus", 9999))
		assert.Equal(t, profile.ErrRelatedNotFound, errors.Cause(err))
	})

	t.Run("referential rules", func(t *testing.T) {
		r := newRepos(t)
		grade := CreateGrade(t, r.Academics, 1)
		tchAcc := CreateAccount(t, r.Accounts, "mmcgonagall", "", "transfigure1", account.RoleTeacher, true)
		require.NoError(t, r.Profiles.CreateProfile(ctx, teacher(tchAcc, "Minerva")))
		class := CreateClass(t, r.Academics, "Gryffindor", grade.ID, tchAcc.ID)
		subject := CreateSubject(t, r.Academics, "Transfiguration", tchAcc.ID)
		CreateLesson(t, r.Academics, subject.ID, class.ID, tchAcc.ID)

		parentAcc := CreateAccount(t, r.Accounts, "mweasley", "", "burrow1234", account.RoleParent, true)
		require.NoError(t, r.Profiles.CreateProfile(ctx, profile.Parent{
			Base: profile.Base{ID: parentAcc.ID, Username: "mweasley", Name: "Molly", Surname: "Weasley", Phone: core.NullString("0")},
		}))
		studentAcc := CreateAccount(t, r.Accounts, "rweasley", "", "scabbers99", account.RoleStudent, true)
		require.NoError(t, r.Profiles.CreateProfile(ctx, profile.Student{
			Base:      profile.Base{ID: studentAcc.ID, Username: "rweasley", Name: "Ron", Surname: "Weasley"},
			BloodType: "O+",
			Sex:       profile.SexMale,
			Birthday:  time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
			GradeID:   grade.ID,
			ClassID:   class.ID,
			ParentID:  parentAcc.ID,
		}))

		parent, err := r.Profiles.GetParent(ctx, parentAcc.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{studentAcc.ID}, parent.StudentIDs)

		// a profile pins its account
		assert.Equal(t, account.ErrAccountInUse, errors.Cause(r.Accounts.DeleteAccount(ctx, studentAcc.ID)))
		// a parent with students cannot go
		assert.Equal(t, profile.ErrProfileInUse, errors.Cause(r.Profiles.DeleteProfile(ctx, profile.KindParent, parentAcc.ID)))
		// nor can an occupied class
		assert.Equal(t, academics.ErrInUse, errors.Cause(r.Academics.DeleteClass(ctx, class.ID)))

		// a teacher takes their lessons along and leaves the class unsupervised
		require.NoError(t, r.Profiles.DeleteProfile(ctx, profile.KindTeacher, tchAcc.ID))
		lessons, err := r.Academics.QueryLessons(ctx, academics.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, lessons)
		cls, err := r.Academics.GetClass(ctx, class.ID)
		require.NoError(t, err)
		assert.False(t, cls.SupervisorID.Valid)
		subj, err := r.Academics.GetSubject(ctx, subject.ID)
		require.NoError(t, err)
		assert.Empty(t, subj.TeacherIDs)

		require.NoError(t, r.Profiles.DeleteProfile(ctx, profile.KindStudent, studentAcc.ID))
		require.NoError(t, r.Accounts.DeleteAccount(ctx, studentAcc.ID))
		require.NoError(t, r.Profiles.DeleteProfile(ctx, profile.KindParent, parentAcc.ID))

		assert.Equal(t, profile.ErrNotFound, errors.Cause(r.Profiles.DeleteProfile(ctx, profile.KindParent, parentAcc.ID)))
		assert.Equal(t, profile.ErrNotFound, errors.Cause(r.Profiles.UpdateProfile(ctx, teacher(tchAcc, "Minerva"))))
	})

	t.Run("queries", func(t *testing.T) {
		r := newRepos(t)
		potions := CreateSubject(t, r.Academics, "Potions")
		for _, tc := range []struct {
			uname, name string
			subjects    []int
		}{
			{"msnape", "Severus", []int{potions.ID}},
			{"hslughorn", "Horace", []int{potions.ID}},
			{"gilderoy", "Gilderoy", nil},
		} {
			acc := CreateAccount(t, r.Accounts, tc.uname, tc.uname+"@hogwarts.test", "hogwarts123", account.RoleTeacher, true)
			require.NoError(t, r.Profiles.CreateProfile(ctx, teacher(acc, tc.name, tc.subjects...)))
		}

		var filter profile.QueryFilter
		filter.SubjectID = potions.ID
		filter.Ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
		teachers, err := r.Profiles.QueryTeachers(ctx, filter)
		require.NoError(t, err)
		require.Len(t, teachers, 2)
		assert.Equal(t, "Horace", teachers[0].Name)
		assert.Equal(t, "Severus", teachers[1].Name)

		filter = profile.QueryFilter{}
		filter.Search = "GILDER"
		teachers, err = r.Profiles.QueryTeachers(ctx, filter)
		require.NoError(t, err)
		require.Len(t, teachers, 1)
		assert.Equal(t, "gilderoy", teachers[0].Username)

		filter.Search = "hogwarts.test"
		teachers, err = r.Profiles.QueryTeachers(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, teachers, 3)
	})

	t.Run("transactions roll back", func(t *testing.T) {
		r := newRepos(t)
		err := r.Tx.WithinTx(ctx, func(repos provision.Repositories) error {
			acc := CreateAccount(t, repos.Accounts, "qquirrell", "", "voldemort1", account.RoleTeacher, true)
			if err := repos.Profiles.CreateProfile(ctx, teacher(acc, "Quirinus")); err != nil {
				return err
			}
			return errAbort
		})
		assert.Equal(t, errAbort, errors.Cause(err))

		_, err = r.Accounts.GetAccount(ctx, account.GetFilter{Username: "qquirrell"})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
		teachers, err := r.Profiles.QueryTeachers(ctx, profile.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, teachers)
	})
}
