package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	reports := filepath.Join(t.TempDir(), "reports")
	dir := writeConfig(t, `
jwt:
  secret: unit-test-secret
storage:
  local_path: `+reports+`
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 10, cfg.RateLimit.LoginMaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
	assert.True(t, cfg.Bootstrap.SampleQuiz)

	info, err := os.Stat(reports)
	require.NoError(t, err, "local report directory is created")
	assert.True(t, info.IsDir())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret: unit-test-secret
  expire_hours: 2
storage:
  local_path: `+t.TempDir()+`
`)
	t.Setenv("PHISH_TRAINER_JWT_SECRET", "from-environment")
	t.Setenv("DATABASE_DRIVER", "mysql")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-environment", cfg.JWT.Secret)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "postgres"},
		JWT:      JWTConfig{Secret: "x"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Mode = "release"
	assert.Error(t, cfg.Validate(), "short secret is rejected in release mode")

	cfg.JWT.Secret = ""
	cfg.Server.Mode = "debug"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
