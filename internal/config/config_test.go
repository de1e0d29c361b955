package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 10, cfg.Scraper.MaxResults)
	assert.Equal(t, 5, cfg.Scraper.SettleSeconds)
	assert.True(t, cfg.Scraper.Warmup)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SCRAPER_MAX_RESULTS", "25")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 25, cfg.Scraper.MaxResults)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SCRAPER_WARMUP", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.True(t, cfg.Scraper.Warmup)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{"port out of range", map[string]string{"PORT": "70000"}, "invalid server port"},
		{"zero results", map[string]string{"SCRAPER_MAX_RESULTS": "0"}, "at least 1 result"},
		{"inverted delays", map[string]string{"SCRAPER_MIN_DELAY": "10", "SCRAPER_MAX_DELAY": "2"}, "delay range"},
		{"zero cache", map[string]string{"CACHE_SIZE": "0"}, "cache size"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
