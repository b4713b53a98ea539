package provision_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
	appfs "github.com/trezcool/darasa/fs"
	cachesvc "github.com/trezcool/darasa/services/cache"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type testEnv struct {
	db        *inmemdb.DB
	accounts  account.Repository
	profiles  profile.Repository
	academics academics.Repository
	cache     *cachesvc.MemoryCache
	logger    *testutil.Logger
	mail      *emailsvc.ConsoleServiceMock
	svc       *provision.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:          "Darasa",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@darasa.test"},
		FrontendBaseURL:  "http://darasa.test",
	}
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(appfs.FS, appfs.TemplatesDir, true, logger)

	db := inmemdb.Open()
	env := &testEnv{
		db:        db,
		accounts:  inmemdb.NewAccountRepository(db),
		profiles:  inmemdb.NewProfileRepository(db),
		academics: inmemdb.NewAcademicsRepository(db),
		cache:     cachesvc.NewMemoryCache(0),
		logger:    logger,
		mail:      emailsvc.NewConsoleServiceMock(conf, logger),
	}
	env.svc = provision.NewService(db, env.cache, env.mail, logger)
	return env
}

// create provisions in and returns the id of the new account.
func (env *testEnv) create(t *testing.T, in profile.Input) string {
	t.Helper()
	require.Equal(t, core.Succeeded, env.svc.Create(context.Background(), in))
	acc, err := env.accounts.GetAccount(context.Background(), account.GetFilter{Username: in.Credentials().Username})
	require.NoError(t, err)
	return acc.ID
}

func (env *testEnv) lastErrorKind(t *testing.T) provision.ErrorKind {
	t.Helper()
	entries := env.logger.Entries("ERROR")
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	require.NotEmpty(t, last.Args)
	err, ok := last.Args[0].(error)
	require.True(t, ok)
	return provision.KindOf(err)
}

var birthday = core.NewDate(time.Date(1960, 1, 9, 0, 0, 0, 0, time.UTC))

func teacherInput(uname, pwd string, subjects ...core.NumID) *profile.TeacherInput {
	return &profile.TeacherInput{
		BaseInput: profile.BaseInput{
			Username: uname,
			Password: pwd,
			Name:     "Severus",
			Surname:  "Snape",
			Address:  "Dungeons",
		},
		BloodType: "O-",
		Sex:       profile.SexMale,
		Birthday:  birthday,
		Subjects:  subjects,
	}
}

func parentInput(uname, phone string) *profile.ParentInput {
	return &profile.ParentInput{BaseInput: profile.BaseInput{
		Username: uname,
		Password: "privetdrive4",
		Name:     "Vernon",
		Surname:  "Dursley",
		Phone:    phone,
		Address:  "4 Privet Drive",
	}}
}

func studentInput(uname, pwd string, gradeID, classID int, parentID string) *profile.StudentInput {
	return &profile.StudentInput{
		BaseInput: profile.BaseInput{
			Username: uname,
			Password: pwd,
			Name:     "Harry",
			Surname:  "Potter",
			Address:  "Cupboard under the stairs",
		},
		BloodType: "A+",
		Sex:       profile.SexMale,
		Birthday:  core.NewDate(time.Date(1980, 7, 31, 0, 0, 0, 0, time.UTC)),
		GradeID:   core.NumID(gradeID),
		ClassID:   core.NumID(classID),
		ParentID:  parentID,
	}
}

// school creates a grade and a class, then a parent; it returns their ids.
func (env *testEnv) school(t *testing.T) (gradeID, classID int, parentID string) {
	t.Helper()
	grade := testutil.CreateGrade(t, env.academics, 1)
	class := testutil.CreateClass(t, env.academics, "Gryffindor", grade.ID, "")
	parentID = env.create(t, parentInput("vdursley", "+44 20 7946 0000"))
	return grade.ID, class.ID, parentID
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher with subjects", func(t *testing.T) {
		env := newTestEnv(t)
		for _, name := range []string{"Charms", "Transfiguration", "Potions"} {
			testutil.CreateSubject(t, env.academics, name)
		}

		res := env.svc.Create(ctx, teacherInput("msnape", "potionsmaster1", 3))
		assert.Equal(t, core.Result{Success: true, Error: false}, res)

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{Username: "msnape"})
		require.NoError(t, err)
		assert.Equal(t, account.RoleTeacher, acc.Role)
		assert.True(t, acc.IsVerified())
		assert.NotEqual(t, []byte("potionsmaster1"), acc.PasswordHash)
		assert.NoError(t, acc.CheckPassword("potionsmaster1"))

		tch, err := env.profiles.GetTeacher(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc.ID, tch.ID)
		assert.Equal(t, []int{3}, tch.SubjectIDs)
		assert.Equal(t, "msnape", tch.Username)
		assert.Equal(t, "Severus", tch.Name)
		assert.Equal(t, "Snape", tch.Surname)
		assert.Equal(t, "Dungeons", tch.Address)
		assert.Equal(t, "O-", tch.BloodType)
		assert.Equal(t, profile.SexMale, tch.Sex)
		assert.True(t, birthday.Time.Equal(tch.Birthday))
		assert.False(t, tch.Email.Valid)
		assert.False(t, tch.Phone.Valid)
		assert.False(t, tch.Img.Valid)

		assert.Equal(t, 1, env.cache.Invalidations(core.ListTeachersPath))
		assert.Empty(t, env.mail.SentMessages(), "no email, no notice")
	})

	t.Run("student and parent", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, classID, parentID := env.school(t)

		studentID := env.create(t, studentInput("hpotter", "nimbus2000", gradeID, classID, parentID))

		st, err := env.profiles.GetStudent(ctx, studentID)
		require.NoError(t, err)
		assert.Equal(t, parentID, st.ParentID)
		assert.Equal(t, classID, st.ClassID)
		assert.Equal(t, gradeID, st.GradeID)

		par, err := env.profiles.GetParent(ctx, parentID)
		require.NoError(t, err)
		assert.Equal(t, []string{studentID}, par.StudentIDs)
		assert.Equal(t, "+44 20 7946 0000", par.Phone.String)

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: studentID})
		require.NoError(t, err)
		assert.Equal(t, account.RoleStudent, acc.Role)

		// the parent's own create, then the student's listing its children
		assert.Equal(t, 2, env.cache.Invalidations(core.ListParentsPath))
		assert.Equal(t, 1, env.cache.Invalidations(core.ListStudentsPath))
	})

	t.Run("sends the account created notice", func(t *testing.T) {
		env := newTestEnv(t)
		in := teacherInput("mmcgonagall", "transfigure42")
		in.Name, in.Surname, in.Email = "Minerva", "McGonagall", "minerva@hogwarts.test"
		env.create(t, in)

		sent := env.mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "account_created", sent[0].TemplateName)
		assert.Equal(t, []mail.Address{{Name: "Minerva McGonagall", Address: "minerva@hogwarts.test"}}, sent[0].To)
		assert.Contains(t, sent[0].TextContent, "mmcgonagall")
		assert.Contains(t, sent[0].TextContent, "http://darasa.test")
	})

	t.Run("duplicate username fails without a second profile", func(t *testing.T) {
		env := newTestEnv(t)
		env.create(t, teacherInput("msnape", "potionsmaster1"))

		res := env.svc.Create(ctx, teacherInput("msnape", "halfbloodprince"))
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, provision.KindStoreFailure, env.lastErrorKind(t))

		teachers, err := env.profiles.QueryTeachers(ctx, profile.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, teachers, 1)
		assert.Equal(t, 1, env.cache.Invalidations(core.ListTeachersPath))
	})

	t.Run("profile failure leaves no orphan account", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, _, parentID := env.school(t)

		res := env.svc.Create(ctx, studentInput("hpotter", "nimbus2000", gradeID, 999, parentID))
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, provision.KindStoreFailure, env.lastErrorKind(t))

		_, err := env.accounts.GetAccount(ctx, account.GetFilter{Username: "hpotter"})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
		assert.Equal(t, 0, env.cache.Invalidations(core.ListStudentsPath))
	})

	t.Run("unknown subject", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.svc.Create(ctx, teacherInput("msnape", "potionsmaster1", 42))
		assert.Equal(t, core.Failed, res)

		_, err := env.accounts.GetAccount(ctx, account.GetFilter{Username: "msnape"})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("empty password keeps the stored hash", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, classID, parentID := env.school(t)
		id := env.create(t, studentInput("hpotter", "nimbus2000", gradeID, classID, parentID))
		before, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		require.NoError(t, err)

		in := studentInput("hpotter", "", gradeID, classID, parentID)
		in.ID = id
		in.Address = "Gryffindor Tower"
		require.Equal(t, core.Succeeded, env.svc.Update(ctx, in))

		after, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
		assert.NoError(t, after.CheckPassword("nimbus2000"))

		st, err := env.profiles.GetStudent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Gryffindor Tower", st.Address)
		assert.Equal(t, 2, env.cache.Invalidations(core.ListStudentsPath))
	})

	t.Run("new password replaces the hash", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.create(t, teacherInput("msnape", "potionsmaster1"))

		in := teacherInput("msnape", "halfbloodprince")
		in.ID = id
		require.Equal(t, core.Succeeded, env.svc.Update(ctx, in))

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Error(t, acc.CheckPassword("potionsmaster1"))
		assert.NoError(t, acc.CheckPassword("halfbloodprince"))
	})

	t.Run("rewrites credentials and replaces the subject set", func(t *testing.T) {
		env := newTestEnv(t)
		for _, name := range []string{"Charms", "Transfiguration", "Potions"} {
			testutil.CreateSubject(t, env.academics, name)
		}
		id := env.create(t, teacherInput("msnape", "potionsmaster1", 1, 3))

		in := teacherInput("hbprince", "", 2)
		in.ID = id
		in.Email = "prince@hogwarts.test"
		require.Equal(t, core.Succeeded, env.svc.Update(ctx, in))

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Equal(t, "hbprince", acc.Username)
		assert.Equal(t, "prince@hogwarts.test", acc.Email.String)

		tch, err := env.profiles.GetTeacher(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "hbprince", tch.Username)
		assert.Equal(t, []int{2}, tch.SubjectIDs)
	})

	t.Run("missing id", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.svc.Update(ctx, teacherInput("msnape", ""))
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, provision.KindMissingIdentifier, env.lastErrorKind(t))
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)
		in := teacherInput("msnape", "")
		in.ID = "3f1a7c52-7a2e-4f3e-9d2b-0d5c8e4b9a11"
		assert.Equal(t, core.Failed, env.svc.Update(ctx, in))
		assert.Equal(t, provision.KindStoreFailure, env.lastErrorKind(t))
	})

	t.Run("id of another kind", func(t *testing.T) {
		env := newTestEnv(t)
		_, _, parentID := env.school(t)

		in := teacherInput("vdursley", "")
		in.ID = parentID
		assert.Equal(t, core.Failed, env.svc.Update(ctx, in))

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: parentID})
		require.NoError(t, err)
		assert.Equal(t, account.RoleParent, acc.Role)
	})

	t.Run("profile failure rolls the account back", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, classID, parentID := env.school(t)
		id := env.create(t, studentInput("hpotter", "nimbus2000", gradeID, classID, parentID))

		in := studentInput("theboywholived", "", gradeID, 999, parentID)
		in.ID = id
		assert.Equal(t, core.Failed, env.svc.Update(ctx, in))

		acc, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		require.NoError(t, err)
		assert.Equal(t, "hpotter", acc.Username)
	})
}

type failingAccountDeletes struct {
	account.Repository
}

func (failingAccountDeletes) DeleteAccount(context.Context, string) error {
	return errors.New("connection reset by peer")
}

// failingTx hands failingAccountDeletes to every transaction.
type failingTx struct {
	provision.Transactor
}

func (tx failingTx) WithinTx(ctx context.Context, fn func(repos provision.Repositories) error) error {
	return tx.Transactor.WithinTx(ctx, func(repos provision.Repositories) error {
		repos.Accounts = failingAccountDeletes{repos.Accounts}
		return fn(repos)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the profile and the account", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, classID, parentID := env.school(t)
		id := env.create(t, studentInput("hpotter", "nimbus2000", gradeID, classID, parentID))

		res := env.svc.Delete(ctx, profile.KindStudent, provision.DeleteForm{ID: id})
		assert.Equal(t, core.Succeeded, res)

		_, err := env.profiles.GetStudent(ctx, id)
		assert.Equal(t, profile.ErrNotFound, errors.Cause(err))
		_, err = env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))
		assert.Equal(t, 2, env.cache.Invalidations(core.ListStudentsPath))
	})

	t.Run("parent with students is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		gradeID, classID, parentID := env.school(t)
		s1 := env.create(t, studentInput("hpotter", "nimbus2000", gradeID, classID, parentID))
		s2 := env.create(t, studentInput("ddursley", "smeltings1", gradeID, classID, parentID))

		res := env.svc.Delete(ctx, profile.KindParent, provision.DeleteForm{ID: parentID})
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, provision.KindStoreFailure, env.lastErrorKind(t))

		par, err := env.profiles.GetParent(ctx, parentID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{s1, s2}, par.StudentIDs)
		_, err = env.accounts.GetAccount(ctx, account.GetFilter{ID: parentID})
		assert.NoError(t, err)

		// once the children are gone, the parent goes too
		require.Equal(t, core.Succeeded, env.svc.Delete(ctx, profile.KindStudent, provision.DeleteForm{ID: s1}))
		require.Equal(t, core.Succeeded, env.svc.Delete(ctx, profile.KindStudent, provision.DeleteForm{ID: s2}))
		assert.Equal(t, core.Succeeded, env.svc.Delete(ctx, profile.KindParent, provision.DeleteForm{ID: parentID}))
	})

	t.Run("teacher delete clears supervision and lessons", func(t *testing.T) {
		env := newTestEnv(t)
		tchID := env.create(t, teacherInput("msnape", "potionsmaster1"))
		grade := testutil.CreateGrade(t, env.academics, 5)
		class := testutil.CreateClass(t, env.academics, "Slytherin", grade.ID, tchID)
		subject := testutil.CreateSubject(t, env.academics, "Potions", tchID)
		testutil.CreateLesson(t, env.academics, subject.ID, class.ID, tchID)

		require.Equal(t, core.Succeeded, env.svc.Delete(ctx, profile.KindTeacher, provision.DeleteForm{ID: tchID}))

		class, err := env.academics.GetClass(ctx, class.ID)
		require.NoError(t, err)
		assert.False(t, class.SupervisorID.Valid)
		subject, err = env.academics.GetSubject(ctx, subject.ID)
		require.NoError(t, err)
		assert.Empty(t, subject.TeacherIDs)
		lessons, err := env.academics.QueryLessons(ctx, academics.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, lessons)
	})

	t.Run("missing id", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.svc.Delete(ctx, profile.KindTeacher, provision.DeleteForm{ID: "  "})
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, provision.KindMissingIdentifier, env.lastErrorKind(t))
	})

	t.Run("unknown id", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.svc.Delete(ctx, profile.KindParent, provision.DeleteForm{ID: "nope"})
		assert.Equal(t, core.Failed, res)
		assert.Equal(t, 0, env.cache.Invalidations(core.ListParentsPath))
	})

	t.Run("account failure restores the profile", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.create(t, teacherInput("msnape", "potionsmaster1"))
		svc := provision.NewService(failingTx{env.db}, env.cache, nil, env.logger)

		res := svc.Delete(ctx, profile.KindTeacher, provision.DeleteForm{ID: id})
		assert.Equal(t, core.Failed, res)

		_, err := env.profiles.GetTeacher(ctx, id)
		assert.NoError(t, err)
		_, err = env.accounts.GetAccount(ctx, account.GetFilter{ID: id})
		assert.NoError(t, err)
	})

	t.Run("account cannot go before its profile", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.create(t, teacherInput("msnape", "potionsmaster1"))

		err := env.accounts.DeleteAccount(ctx, id)
		assert.Equal(t, account.ErrAccountInUse, errors.Cause(err))
		_, err = env.profiles.GetTeacher(ctx, id)
		assert.NoError(t, err)
	})
}

type failingInvalidator struct{}

func (failingInvalidator) Invalidate(context.Context, ...string) error {
	return errors.New("redis: connection refused")
}

func TestService_InvalidationFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := provision.NewService(env.db, failingInvalidator{}, nil, env.logger)

	res := svc.Create(context.Background(), teacherInput("msnape", "potionsmaster1"))
	assert.Equal(t, core.Succeeded, res)
	assert.Len(t, env.logger.Entries("WARN"), 1)
	assert.Empty(t, env.logger.Entries("ERROR"))
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		kind profile.Kind
		role account.Role
		path string
	}{
		{kind: profile.KindTeacher, role: account.RoleTeacher, path: "/list/teachers"},
		{kind: profile.KindStudent, role: account.RoleStudent, path: "/list/students"},
		{kind: profile.KindParent, role: account.RoleParent, path: "/list/parents"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.role, provision.RoleOf(tt.kind))
			assert.Equal(t, tt.path, provision.ListPath(tt.kind))
			assert.Equal(t, tt.path, provision.InvalidatedPaths(tt.kind)[0])
		})
	}
}
