package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("SCORING_VIP_LIST", "")
	t.Setenv("SCORING_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, time.Minute, cfg.Cache.MaxWait())
	assert.Equal(t, time.Second, cfg.Cache.PollInterval())
	assert.Equal(t, "Europe/Paris", cfg.Scoring.TimeZone)
	assert.Empty(t, cfg.Scoring.VIPList)
}

func TestLoad_ParsesVIPList(t *testing.T) {
	t.Setenv("SCORING_VIP_LIST", " DUPONT, MARTIN ,,LEROY")
	t.Setenv("SCORING_SENSITIVE_LIST", "Lefèvre")
	t.Setenv("CACHE_TTL_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"DUPONT", "MARTIN", "LEROY"}, cfg.Scoring.VIPList)
	assert.Equal(t, []string{"Lefèvre"}, cfg.Scoring.SensitiveList)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL())
}

func TestLoad_RejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("SCORING_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_SelectsSourceAndCacheBackend(t *testing.T) {
	t.Setenv("SOURCE_MODE", "CSV")
	t.Setenv("SOURCE_CSV_DIR", "/tmp/exports")
	t.Setenv("CACHE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source.Mode)
	assert.Equal(t, "/tmp/exports", cfg.Source.CSVDir)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestLoad_RejectsUnknownSourceMode(t *testing.T) {
	t.Setenv("SOURCE_MODE", "ftp")

	_, err := Load()
	require.Error(t, err)
}
