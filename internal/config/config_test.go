package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "market-scan.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Scan.SampleSize)
	assert.Equal(t, 10, cfg.Scan.MaxReviewListings)
	assert.Equal(t, 24, cfg.Scan.CacheTTLHours)
	assert.Equal(t, 5.0, cfg.Signals.BucketWidth)
	assert.Equal(t, "mock", cfg.Anthropic.Provider)
	assert.Equal(t, "https://openapi.etsy.com/v3", cfg.Etsy.BaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MARKETSCAN_STORE_DRIVER", "postgres")
	t.Setenv("MARKETSCAN_SCAN_SAMPLE_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 100, cfg.Scan.SampleSize)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
