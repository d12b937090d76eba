package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const defaultStubSecret = "dev-secret-change-in-production"

type Config struct {
	APIBaseURL      string
	Env             string
	RequestTimeout  time.Duration
	TokenStore      string
	TokenPath       string
	TokenPassphrase string
	DatabaseDSN     string
	RateLimitRPS    float64
	RateLimitBurst  int
	LogLevel        slog.Level

	StubPort     string
	StubSecret   string
	StubTokenTTL time.Duration
}

func Load() Config {
	cfg := Config{
		APIBaseURL:      getEnv("BLOGNEST_API_URL", "http://localhost:8000"),
		Env:             getEnv("ENV", "development"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
		TokenStore:      getEnv("TOKEN_STORE", "file"),
		TokenPath:       getEnv("TOKEN_PATH", defaultTokenPath()),
		TokenPassphrase: os.Getenv("TOKEN_PASSPHRASE"),
		DatabaseDSN:     getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/blognest?parseTime=true"),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 20),
		LogLevel:        getLevel("LOG_LEVEL", slog.LevelInfo),

		StubPort:     getEnv("STUB_PORT", "8000"),
		StubSecret:   getEnv("STUB_JWT_SECRET", defaultStubSecret),
		StubTokenTTL: getDuration("STUB_TOKEN_TTL", 30*time.Minute),
	}

	return cfg
}

// UsesDefaultSecret reports whether the stub backend would sign tokens with the
// built-in development secret.
func (c Config) UsesDefaultSecret() bool {
	return c.StubSecret == defaultStubSecret
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".blognest", "token")
	}
	return filepath.Join(home, ".blognest", "token")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v)
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		slog.Warn("invalid number, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level, using default", "key", key, "value", v)
		return fallback
	}
	return lvl
}
