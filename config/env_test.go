package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DUCKDB_PATH", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("POS_BATCH_SIZE", "")

	cfg := LoadConfig()

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "", cfg.Analytics.Path, ":memory: maps to the in-process DSN")
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 20, cfg.Seed.BatchSize)
	assert.Equal(t, "10-M", cfg.RateLimit.Chat)
	assert.Equal(t, 5, cfg.LLM.MaxSteps)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DUCKDB_PATH", "/var/lib/sous/analytics.duckdb")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("POS_BATCH_SIZE", "50")
	t.Setenv("AGENT_MAX_STEPS", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "/var/lib/sous/analytics.duckdb", cfg.Analytics.Path)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6380", cfg.Redis.Addr())
	assert.Equal(t, 50, cfg.Seed.BatchSize)
	assert.Equal(t, 5, cfg.LLM.MaxSteps, "unparsable ints keep the default")
	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())

	SetLogLevel("info")
}

func TestSetLogLevel_Unknown(t *testing.T) {
	SetLogLevel("chatty")
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}
