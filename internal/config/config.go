package config

import (
	"os"
	"time"
)

// Config carries everything the composition root needs from the environment.
type Config struct {
	DatabaseURL string
	HTTPPort    string
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
}

// Load reads configuration from the environment. DATABASE_URL and JWT_SECRET
// have no defaults; the caller decides whether their absence is fatal.
func Load() Config {
	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AccessTTL:   getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:  getDuration("REFRESH_TOKEN_TTL", 720*time.Hour),
		ResetTTL:    getDuration("RESET_TOKEN_TTL", time.Hour),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}
