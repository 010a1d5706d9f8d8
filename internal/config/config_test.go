package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_API_KEY", "LLM_API_URL", "LLM_MODEL", "LLM_MAX_TOKENS",
		"LLM_TEMPERATURE", "LLM_TIMEOUT", "LLM_SITE_URL", "LLM_APP_NAME",
		"SEARCH_API_KEY", "SEARCH_API_URL",
		"RECENCY_WINDOW_HOURS", "SEARCH_CONCURRENCY", "ENRICH_CONCURRENCY",
		"JOBSCOUT_BACKEND", "JOBSCOUT_DATA_DIR", "DATABASE_URL", "REDIS_URL",
		"CRON_EXPR", "AGENT_MAX_ITERATIONS",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("JOBSCOUT_DATA_DIR", t.TempDir())

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, 8000, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 30, cfg.LLM.Timeout)

	assert.Equal(t, "https://api.tavily.com/search", cfg.Search.APIURL)

	assert.Equal(t, 12, cfg.Pipeline.RecencyWindowHours)
	assert.Equal(t, 1, cfg.Pipeline.SearchConcurrency)
	assert.Equal(t, 1, cfg.Pipeline.EnrichConcurrency)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "0 0 * * *", cfg.Daemon.CronExpr)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LLM_MODEL", "anthropic/claude-sonnet")
	t.Setenv("LLM_MAX_TOKENS", "2000")
	t.Setenv("LLM_TEMPERATURE", "0.3")
	t.Setenv("RECENCY_WINDOW_HOURS", "6")
	t.Setenv("SEARCH_CONCURRENCY", "4")
	t.Setenv("JOBSCOUT_BACKEND", "sqlite")
	t.Setenv("JOBSCOUT_DATA_DIR", "/tmp/jobscout-test")
	t.Setenv("CRON_EXPR", "0 8 * * *")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 6, cfg.Pipeline.RecencyWindowHours)
	assert.Equal(t, 4, cfg.Pipeline.SearchConcurrency)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/jobscout-test", cfg.Storage.DataDir)
	assert.Equal(t, "0 8 * * *", cfg.Daemon.CronExpr)
}

func TestNewFromEnv_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("JOBSCOUT_DATA_DIR", t.TempDir())
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	t.Setenv("LLM_TEMPERATURE", "warm")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
}

func TestNewFromEnv_NoAPIKeyStillLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBSCOUT_DATA_DIR", t.TempDir())

	// Listing jobs or migrating backends must work without LLM credentials.
	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestNewFromEnv_BackendValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("JOBSCOUT_DATA_DIR", t.TempDir())

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("JOBSCOUT_BACKEND", "etcd")
		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown backend")
	})

	t.Run("postgres needs DATABASE_URL", func(t *testing.T) {
		t.Setenv("JOBSCOUT_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("postgres with DATABASE_URL", func(t *testing.T) {
		t.Setenv("JOBSCOUT_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "postgres://localhost/jobscout")
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	})
}

func TestNewFromEnv_Options(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("JOBSCOUT_DATA_DIR", t.TempDir())

	cfg, err := NewFromEnv(func(c *Config) {
		c.Pipeline.SearchConcurrency = 8
	})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pipeline.SearchConcurrency)
}

func TestDataDirPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("JOBSCOUT_DATA_DIR", "/data/jobscout")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data/jobscout", "jobscout.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("/data/jobscout", "recovery-anna.jsonl"), cfg.WALPath("anna"))
	assert.Equal(t, filepath.Join("/data/jobscout", "profile.json"), cfg.ProfilePath())
}
