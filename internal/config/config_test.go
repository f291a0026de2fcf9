package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "cv-photos", cfg.MinIO.Bucket)
	assert.Equal(t, 30*time.Second, cfg.ExportTimeout())
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL())
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  address: ":9090"
postgres:
  url: "postgres://u:p@db:5432/cv"
redis:
  enabled: true
  address: "redis:6379"
chrome:
  export_timeout: "10s"
jwt:
  ttl_hours: 24
logger:
  level: "debug"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "postgres://u:p@db:5432/cv", cfg.Postgres.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Second, cfg.ExportTimeout())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL())
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-db/cv")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-db/cv", cfg.Postgres.URL)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("junk", time.Minute))
}
