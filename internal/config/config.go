package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds shared runtime configuration for the csvclean binaries.
type Config struct {
	LogLevel       slog.Level
	LogFile        string
	MetricsBackend string
	MetricsTags    string
	PushURL        string
	PushJob        string
}

// Load reads configuration from environment variables with sane defaults
// for local use. Command line flags take precedence over these values.
func Load() Config {
	return Config{
		LogLevel:       getEnvLevel("CSVCLEAN_LOG_LEVEL", slog.LevelInfo),
		LogFile:        getEnv("CSVCLEAN_LOG_FILE", ""),
		MetricsBackend: getEnv("CSVCLEAN_METRICS_BACKEND", ""),
		MetricsTags:    getEnv("CSVCLEAN_METRICS_TAGS", ""),
		PushURL:        getEnv("CSVCLEAN_PUSH_URL", "http://localhost:9091"),
		PushJob:        getEnv("CSVCLEAN_PUSH_JOB", "csvclean"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvLevel(key string, def slog.Level) slog.Level {
	return ParseLevel(os.Getenv(key), def)
}

// ParseLevel maps a level name to a slog.Level, returning def for names it
// does not recognize. Matching is case-insensitive and ignores surrounding
// whitespace.
func ParseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return def
}
