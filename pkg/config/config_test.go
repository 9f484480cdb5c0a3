package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Import.DefaultCurrency)
	assert.Equal(t, 20, cfg.Import.HeaderScanRows)
	assert.Equal(t, 10, cfg.Import.DatePastYears)
	assert.Equal(t, 1, cfg.Import.DateFutureYears)
	assert.Equal(t, "Other", cfg.Import.DefaultCategory)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "*/5 * * * *", cfg.Inbox.Schedule)
	assert.Equal(t, "./archive", cfg.Inbox.ArchiveDir)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IMPORT_DEFAULT_CURRENCY", "uah")
	t.Setenv("IMPORT_HEADER_SCAN_ROWS", "30")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("POSTGRES_PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "UAH", cfg.Import.DefaultCurrency)
	assert.Equal(t, 30, cfg.Import.HeaderScanRows)
	assert.False(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN(), "port=5432")
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IMPORT_DEFAULT_CARD=Monobank Black\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("IMPORT_DEFAULT_CARD") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Monobank Black", cfg.Import.DefaultCard)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("IMPORT_DEFAULT_CURRENCY", "EURO")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("IMPORT_DEFAULT_CURRENCY", "EUR")
	t.Setenv("IMPORT_HEADER_SCAN_ROWS", "0")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
