package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	"github.com/trezcool/darasa/core/nav"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/provision"
	cachesvc "github.com/trezcool/darasa/services/cache"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	conf      *core.Config
	db        *inmemdb.DB
	accounts  account.Repository
	profiles  profile.Repository
	academics academics.Repository
	cache     *cachesvc.MemoryCache
	logger    *testutil.Logger
	server    *echoapi.Server

	admin   account.Account
	teacher account.Account
	student account.Account
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := &core.Config{
		AppName:   "Darasa",
		TestMode:  true,
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	academics.InitValidators(validate, translator)

	db := inmemdb.Open()
	env := &testEnv{
		conf:      conf,
		db:        db,
		accounts:  inmemdb.NewAccountRepository(db),
		profiles:  inmemdb.NewProfileRepository(db),
		academics: inmemdb.NewAcademicsRepository(db),
		cache:     cachesvc.NewMemoryCache(0),
		logger:    new(testutil.Logger),
	}

	env.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       env.logger,
		AccountSvc:   account.NewService(env.accounts),
		ProvisionSvc: provision.NewService(db, env.cache, nil, env.logger),
		AcademicsSvc: academics.NewService(env.academics, env.cache, env.logger),
		Profiles:     env.profiles,
		Cache:        env.cache,
		Nav:          nav.NewResolver(nav.DefaultConfig(), "", false),
		Validate:     validate,
		Translator:   translator,
	})
	t.Cleanup(func() { _ = env.server.Close() })

	env.admin = testutil.CreateAccount(t, env.accounts, "albus", "albus@hogwarts.test", "lemondrop1", account.RoleAdmin, true)
	env.teacher = testutil.CreateAccount(t, env.accounts, "msnape", "", "potionsmaster1", account.RoleTeacher, true)
	env.student = testutil.CreateAccount(t, env.accounts, "hpotter", "", "nimbus2000", account.RoleStudent, true)
	return env
}

func (env *testEnv) do(req *http.Request, rec *httptest.ResponseRecorder) {
	env.server.ServeHTTP(rec, req)
}

func (env *testEnv) token(t *testing.T, acc account.Account) string {
	t.Helper()
	token, err := echoapi.GenerateToken(env.conf, echoapi.NewClaims(env.conf, acc))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (env *testEnv) seedTeacher(t *testing.T) {
	t.Helper()
	err := env.profiles.CreateProfile(context.Background(), profile.Teacher{
		Base:      profile.Base{ID: env.teacher.ID, Username: env.teacher.Username, Name: "Severus", Surname: "Snape"},
		BloodType: "O-",
		Sex:       profile.SexMale,
		Birthday:  time.Date(1960, 1, 9, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seedTeacher() failed: %v", err)
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.do(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
