package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h7labs/imageforge/internal/config"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_ENV_PATH", "/nonexistent/.env")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/imageforge?parseTime=true")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("AUTH_EXCHANGE_SECRET", "exchange")
	t.Setenv("PROVIDERS", "stability")
	t.Setenv("PROVIDER_STABILITY_URL", "https://api.stability.ai/v2beta/stable-image/generate/core")
	t.Setenv("PROVIDER_STABILITY_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.MaxDailyCredits)
	assert.Equal(t, 24*time.Hour, cfg.RefillPeriod)
	assert.Equal(t, 120*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "local", cfg.StorageBackend)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "stability", cfg.Providers[0].Name)
	assert.Equal(t, config.ShapeJSON, cfg.Providers[0].Shape)
}

func TestLoad_ProviderOrderingPreserved(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PROVIDERS", "stability, backup")
	t.Setenv("PROVIDER_BACKUP_URL", "https://backup.example.com/generate")
	t.Setenv("PROVIDER_BACKUP_API_KEY", "bk-test")
	t.Setenv("PROVIDER_BACKUP_SHAPE", "binary")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "stability", cfg.Providers[0].Name)
	assert.Equal(t, "backup", cfg.Providers[1].Name)
	assert.Equal(t, config.ShapeBinary, cfg.Providers[1].Shape)
}

func TestLoad_MissingProviderKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PROVIDER_STABILITY_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_STABILITY_API_KEY")
}

func TestLoad_UnknownShapeRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PROVIDER_STABILITY_SHAPE", "xml")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_MissingRequiredEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MYSQL_DSN", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MYSQL_DSN")
}

func TestLoad_S3BackendRequiresCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}
