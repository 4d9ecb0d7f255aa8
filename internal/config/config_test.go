package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "dev")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_ProdRequiresSecret(t *testing.T) {
	t.Setenv("GO_ENV", "prod")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_YAMLFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "PORT: \"9000\"\nDB_DRIVER: sqlite\nCACHE_TTL: 30s\nRATE_LIMIT_RPS: \"5\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
}

func TestLoad_BadNumberNamesKey(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("POSTGRES_PORT", "abc")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_PORT")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load("")
	require.Error(t, err)
}
