package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/profile"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	succeeded = []byte(`{"success": true, "error": false}`)
	failed    = []byte(`{"success": false, "error": true}`)
)

func teacherPayload(uname string, extra string) []byte {
	return []byte(fmt.Sprintf(`{
		"username": %q,
		"password": "potionsmaster1",
		"name": "Horace",
		"surname": "Slughorn",
		"bloodType": "B+",
		"sex": "MALE",
		"birthday": "1911-04-28"%s
	}`, uname, extra))
}

func TestProvision_Teachers(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, env.admin)
	subject := testutil.CreateSubject(t, env.academics, "Potions")

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     teacherPayload("hslughorn", ""),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "not an admin",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     teacherPayload("hslughorn", ""),
			token:    env.token(t, env.teacher),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "missing name",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     []byte(`{"username": "hslughorn", "password": "potionsmaster1", "surname": "Slughorn", "bloodType": "B+", "sex": "MALE", "birthday": "1911-04-28"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "name is required"}`),
		},
		{
			name:     "username taken",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     teacherPayload("HPotter", ""),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"username": account.ErrUsernameExists.Error()}),
		},
		{
			name:     "unknown subject",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     teacherPayload("hslughorn", `, "subjects": [999]`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{
			name:     "created",
			method:   http.MethodPost,
			path:     "/v1/teachers",
			body:     teacherPayload("hslughorn", fmt.Sprintf(`, "subjects": ["%d"]`, subject.ID)),
			token:    adminToken,
			wantCode: http.StatusCreated,
			wantData: succeeded,
		},
	}
	runHTTPTests(t, env, tests)

	ctx := context.Background()
	acc, err := env.accounts.GetAccount(ctx, account.GetFilter{Username: "hslughorn"})
	require.NoError(t, err)
	assert.Equal(t, account.RoleTeacher, acc.Role)
	tch, err := env.profiles.GetTeacher(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{subject.ID}, tch.SubjectIDs)
	assert.Equal(t, 1, env.cache.Invalidations(core.ListTeachersPath))

	t.Run("update keeps the password when empty", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{
			"id": %q,
			"username": "hslughorn",
			"name": "Horace E. F.",
			"surname": "Slughorn",
			"bloodType": "B+",
			"sex": "MALE",
			"birthday": "1911-04-28"
		}`, acc.ID))
		req, rec := newAuthRequest(http.MethodPut, "/v1/teachers", adminToken, body)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: succeeded}, rec)

		updated, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: acc.ID})
		require.NoError(t, err)
		assert.Equal(t, acc.PasswordHash, updated.PasswordHash)
		tch, err := env.profiles.GetTeacher(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Horace E. F.", tch.Name)
		assert.Empty(t, tch.SubjectIDs)
	})

	t.Run("update with an id of another kind", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{
			"id": %q,
			"username": "hpotter",
			"name": "Harry",
			"surname": "Potter",
			"bloodType": "A+",
			"sex": "MALE",
			"birthday": "1980-07-31"
		}`, env.student.ID))
		req, rec := newAuthRequest(http.MethodPut, "/v1/teachers", adminToken, body)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: failed}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/teachers?id="+acc.ID, adminToken)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: succeeded}, rec)

		_, err := env.accounts.GetAccount(ctx, account.GetFilter{ID: acc.ID})
		assert.Equal(t, account.ErrNotFound, errors.Cause(err))

		// already gone
		req, rec = newAuthRequest(http.MethodDelete, "/v1/teachers?id="+acc.ID, adminToken)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: failed}, rec)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/teachers", adminToken)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: failed}, rec)
	})
}

func TestProvision_StudentsAndParents(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	adminToken := env.token(t, env.admin)
	grade := testutil.CreateGrade(t, env.academics, 1)
	class := testutil.CreateClass(t, env.academics, "Gryffindor", grade.ID, "")

	req, rec := newAuthRequest(http.MethodPost, "/v1/parents", adminToken, []byte(`{
		"username": "mweasley",
		"password": "burrow1234",
		"name": "Molly",
		"surname": "Weasley",
		"email": "molly@burrow.test",
		"phone": "+44 20 7946 0000"
	}`))
	env.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: succeeded}, rec)
	parent, err := env.accounts.GetAccount(ctx, account.GetFilter{Username: "mweasley"})
	require.NoError(t, err)

	req, rec = newAuthRequest(http.MethodPost, "/v1/parents", adminToken, []byte(`{
		"username": "aweasley",
		"password": "burrow1234",
		"name": "Arthur",
		"surname": "Weasley",
		"email": "MOLLY@burrow.test",
		"phone": "+44 20 7946 0001"
	}`))
	env.do(req, rec)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshallObj(t, map[string]string{"email": account.ErrEmailExists.Error()}),
	}, rec)

	student := []byte(fmt.Sprintf(`{
		"username": "rweasley",
		"password": "scabbers99",
		"name": "Ron",
		"surname": "Weasley",
		"bloodType": "O+",
		"sex": "MALE",
		"birthday": "1980-03-01",
		"gradeId": %d,
		"classId": "%d",
		"parentId": %q
	}`, grade.ID, class.ID, parent.ID))
	req, rec = newAuthRequest(http.MethodPost, "/v1/students", adminToken, student)
	env.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: succeeded}, rec)

	students, err := env.profiles.QueryStudents(ctx, profile.QueryFilter{ParentID: parent.ID})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, class.ID, students[0].ClassID)

	// the parent still has a student
	req, rec = newAuthRequest(http.MethodDelete, "/v1/parents?id="+parent.ID, adminToken)
	env.do(req, rec)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: failed}, rec)
	_, err = env.profiles.GetParent(ctx, parent.ID)
	assert.NoError(t, err)
}
