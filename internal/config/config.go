package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BackendBaseURL string
	RedisAddr      string
	HTTPPort       string
	JWTSecret      string
	PollInterval   time.Duration
	SessionTTL     time.Duration
}

func Load() *Config {
	return &Config{
		BackendBaseURL: getEnv("SULAM_BACKEND_URL", "https://sulamserverbackend-cd7ib.ondigitalocean.app"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		PollInterval:   getDuration("POLL_INTERVAL_SECONDS", 30*time.Second),
		SessionTTL:     getDuration("SESSION_TTL_SECONDS", 30*24*time.Hour),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
