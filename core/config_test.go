package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "qa")
	t.Setenv("QA_DEBUG", "false")
	t.Setenv("QA_DATABASE_ENGINE", "memory")
	t.Setenv("QA_REDIS_CACHETTL", "90s")
	t.Setenv("QA_NAV_FALLBACKROLE", "admin")
	t.Setenv("QA_ROLLBARTOKEN", "token")

	conf := NewConfig()

	assert.Equal(t, "QA", conf.Env)
	assert.False(t, conf.Debug)
	assert.False(t, conf.TestMode)
	assert.Equal(t, "memory", conf.Database.Engine)
	assert.Equal(t, 90*time.Second, conf.Redis.CacheTTL)
	assert.Equal(t, "admin", conf.Nav.FallbackRole)
	assert.Equal(t, ":8000", conf.Server.Addr)
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)

	// database settings are not needed by the memory engine
	assert.Equal(t, []string{"QA_SENDGRIDAPIKEY"}, conf.MissingEnv())
}

func TestConfig_MissingEnv(t *testing.T) {
	conf := &Config{Env: "PROD", Database: DatabaseConfig{Engine: "postgres"}}
	assert.Equal(t, []string{
		"PROD_ROLLBARTOKEN",
		"PROD_SENDGRIDAPIKEY",
		"PROD_FRONTENDBASEURL",
		"PROD_DATABASE_HOST",
		"PROD_DATABASE_NAME",
	}, conf.MissingEnv())
}
