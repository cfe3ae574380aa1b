package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: "9000"
store_backend: memory
reminder_lead: 2h
seed_users:
  - id: stu-1
    name: Asha
    role: student
    department: CSE
    semester: 4
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("RATE_LIMIT_PER_MIN", "nope")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	cfg := Load()

	assert.Equal(t, "9100", cfg.HTTPPort, "env beats file")
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 2*time.Hour, cfg.ReminderLead)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMin, "bad int falls back")
	require.Len(t, cfg.SeedUsers, 1)
	assert.Equal(t, "CSE", cfg.SeedUsers[0].Department)
	assert.Equal(t, 4, cfg.SeedUsers[0].Semester)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()

	assert.Equal(t, Defaults().HTTPPort, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
}

func TestBoolEnv(t *testing.T) {
	t.Setenv("MIGRATE_ON_START", "0")
	assert.False(t, boolEnv("MIGRATE_ON_START", true))
	t.Setenv("MIGRATE_ON_START", "maybe")
	assert.True(t, boolEnv("MIGRATE_ON_START", true))
}
