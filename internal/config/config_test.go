package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.SiteOrigin)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.False(t, cfg.BridgeEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SITE_ORIGIN", "https://forum.example.com")
	t.Setenv("REDIS_URL", "redis://cache:6380")
	t.Setenv("BRIDGE_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, "https://forum.example.com", cfg.SiteOrigin)
	assert.Equal(t, "redis://cache:6380", cfg.RedisURL)
	assert.True(t, cfg.BridgeEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBridgeEnabledBadValueFallsBack(t *testing.T) {
	t.Setenv("BRIDGE_ENABLED", "yes please")
	assert.False(t, Load().BridgeEnabled)
}
