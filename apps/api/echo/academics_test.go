package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	testutil "github.com/trezcool/darasa/tests"
)

func TestAcademics_Mutations(t *testing.T) {
	env := setup(t)
	env.seedTeacher(t)
	adminToken := env.token(t, env.admin)
	grade := testutil.CreateGrade(t, env.academics, 1)

	tests := []httpTest{
		{
			name:     "not an admin",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name": "Potions"}`),
			token:    env.token(t, env.student),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "subject without name",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name": "  "}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "name is required"}`),
		},
		{
			name:     "subject created",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(fmt.Sprintf(`{"name": "Potions", "teachers": [%q]}`, env.teacher.ID)),
			token:    adminToken,
			wantCode: http.StatusCreated,
			wantData: succeeded,
		},
		{
			name:     "subject with unknown teacher",
			method:   http.MethodPost,
			path:     "/v1/subjects",
			body:     []byte(`{"name": "Charms", "teachers": ["flitwick"]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{
			name:     "class created",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     []byte(fmt.Sprintf(`{"name": "Slytherin", "capacity": "30", "gradeId": %d, "supervisorId": %q}`, grade.ID, env.teacher.ID)),
			token:    adminToken,
			wantCode: http.StatusCreated,
			wantData: succeeded,
		},
		{
			name:     "class update without id",
			method:   http.MethodPut,
			path:     "/v1/classes",
			body:     []byte(fmt.Sprintf(`{"name": "Slytherin", "capacity": 30, "gradeId": %d}`, grade.ID)),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{
			name:     "unknown class delete",
			method:   http.MethodDelete,
			path:     "/v1/classes?id=999",
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: failed,
		},
		{
			name:     "lesson on a sunday",
			method:   http.MethodPost,
			path:     "/v1/lessons",
			body:     []byte(fmt.Sprintf(`{"name": "Potions I", "day": "SUNDAY", "startTime": "2021-03-01T08:00", "endTime": "2021-03-01T09:00", "subjectId": 1, "classId": 1, "teacherId": %q}`, env.teacher.ID)),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, env, tests)

	ctx := context.Background()
	subjects, err := env.academics.QuerySubjects(ctx, academics.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	classes, err := env.academics.QueryClasses(ctx, academics.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, classes, 1)

	t.Run("lesson then exam", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{
			"name": "Potions I",
			"day": "MONDAY",
			"startTime": "2021-03-01T08:00",
			"endTime": "2021-03-01T10:00",
			"subjectId": %d,
			"classId": %d,
			"teacherId": %q
		}`, subjects[0].ID, classes[0].ID, env.teacher.ID))
		req, rec := newAuthRequest(http.MethodPost, "/v1/lessons", adminToken, body)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: succeeded}, rec)

		lessons, err := env.academics.QueryLessons(ctx, academics.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, lessons, 1)

		body = []byte(fmt.Sprintf(`{"title": "Draught of Peace", "startTime": "2021-03-01T08:00:00Z", "endTime": "2021-03-01T09:00:00Z", "lessonId": %d}`, lessons[0].ID))
		req, rec = newAuthRequest(http.MethodPost, "/v1/exams", adminToken, body)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: succeeded}, rec)

		req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/lessons?id=%d", lessons[0].ID), adminToken)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: succeeded}, rec)

		exams, err := env.academics.QueryExams(ctx, academics.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, exams)
	})

	t.Run("subject update replaces teachers", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"id": %d, "name": "Advanced Potions", "teachers": []}`, subjects[0].ID))
		req, rec := newAuthRequest(http.MethodPut, "/v1/subjects", adminToken, body)
		env.do(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: succeeded}, rec)

		s, err := env.academics.GetSubject(ctx, subjects[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Advanced Potions", s.Name)
		assert.Empty(t, s.TeacherIDs)
		assert.Equal(t, 2, env.cache.Invalidations(core.ListSubjectsPath))
	})
}

func TestAcademics_ScheduleErrors(t *testing.T) {
	env := setup(t)
	body := []byte(`{"name": "Potions I", "day": "SUNDAY", "startTime": "2021-03-01T10:00", "endTime": "2021-03-01T08:00", "subjectId": 1, "classId": 1, "teacherId": "t"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/lessons", env.token(t, env.admin), body)
	env.do(req, rec)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var flds map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flds))
	assert.Contains(t, flds, "day")
	assert.Contains(t, flds, "endTime")
	assert.Len(t, flds, 2)
}
