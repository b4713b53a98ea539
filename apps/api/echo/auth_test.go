package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/account"
	testutil "github.com/trezcool/darasa/tests"
)

func TestLogin(t *testing.T) {
	env := setup(t)
	testutil.CreateAccount(t, env.accounts, "gwarrior", "", "pigfarts01", account.RoleStudent, false)

	tests := []httpTest{
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"username": "albus"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password is required"}`),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"username": "albus", "password": "sherbet"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown account",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"username": "tmriddle", "password": "horcrux777"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "not verified",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     []byte(`{"username": "gwarrior", "password": "pigfarts01"}`),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account not verified"}),
		},
	}
	runHTTPTests(t, env, tests)

	for _, login := range []string{"albus", " ALBUS@hogwarts.test"} {
		t.Run("success "+login, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login",
				marshallObj(t, echoapi.LoginRequest{Username: login, Password: "lemondrop1"}))
			env.do(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp echoapi.TokenResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Token)
		})
	}

	acc, err := env.accounts.GetAccount(context.Background(), account.GetFilter{ID: env.admin.ID})
	require.NoError(t, err)
	assert.True(t, acc.LastLogin.Valid)
}

func TestRefreshToken(t *testing.T) {
	env := setup(t)
	expired, err := echoapi.GenerateToken(env.conf,
		echoapi.NewClaims(env.conf, env.admin, time.Now().Add(-48*time.Hour).Unix()))
	require.NoError(t, err)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/auth/token-refresh",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "refresh expired",
			method:   http.MethodPost,
			path:     "/v1/auth/token-refresh",
			token:    expired,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{
			name:     "success",
			method:   http.MethodPost,
			path:     "/v1/auth/token-refresh",
			token:    env.token(t, env.teacher),
			wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, env, tests)
}
