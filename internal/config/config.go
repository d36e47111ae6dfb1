package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          string
	SiteOrigin    string
	RedisURL      string
	BridgeEnabled bool
	LogLevel      string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		SiteOrigin:    getEnv("SITE_ORIGIN", ""),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		BridgeEnabled: getEnvBool("BRIDGE_ENABLED", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
