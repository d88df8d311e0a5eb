package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := LoadConfig()
	cfg.DatabaseFile = "test.db"
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	require.Equal(t, 64, cfg.TokenSizeBytes)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 3, cfg.MaxTokensPerUser)
	require.Equal(t, "memory", cfg.SessionCacheBackend)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TOKEN_SIZE_BYTES", "32")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("MAX_TOKENS_PER_USER", "5")

	cfg := LoadConfig()
	require.Equal(t, 32, cfg.TokenSizeBytes)
	require.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 5, cfg.MaxTokensPerUser)
}

func TestConfigDurationAsMinutes(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "30")

	cfg := LoadConfig()
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero token size", func(c *Config) { c.TokenSizeBytes = 0 }},
		{"negative token size", func(c *Config) { c.TokenSizeBytes = -1 }},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTL = 0 }},
		{"negative refresh ttl", func(c *Config) { c.RefreshTokenTTL = -time.Hour }},
		{"zero quota", func(c *Config) { c.MaxTokensPerUser = 0 }},
		{"unknown cache backend", func(c *Config) { c.SessionCacheBackend = "memcached" }},
		{"redis without addr", func(c *Config) { c.SessionCacheBackend = "redis"; c.RedisAddr = "" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
