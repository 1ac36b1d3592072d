// Package config reads the server's runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultListenAddr   = ":5055"
	DefaultHTTPAddr     = ":5056"
	DefaultDBPath       = "./data/expensedash.db"
	DefaultMaxLineBytes = 64 * 1024
	DefaultWriteTimeout = 10 * time.Second
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	ListenAddr string
	// HTTPAddr serves /metrics, /healthz and /ws. Empty disables it.
	HTTPAddr string
	DBPath   string
	// DatabaseURL selects the PostgreSQL backend when set.
	DatabaseURL  string
	MaxLineBytes int
	WriteTimeout time.Duration
	LogLevel     string
}

// Load reads configuration from the environment. Unset variables fall back
// to their defaults; malformed numbers are an error.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:  getEnv("LISTEN_ADDR", DefaultListenAddr),
		HTTPAddr:    DefaultHTTPAddr,
		DBPath:      getEnv("DB_PATH", DefaultDBPath),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	// An explicitly empty HTTP_ADDR turns the admin listener off.
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}

	maxLine, err := getInt("MAX_LINE_BYTES", DefaultMaxLineBytes)
	if err != nil {
		return Config{}, err
	}
	if maxLine < 64 {
		return Config{}, fmt.Errorf("MAX_LINE_BYTES must be at least 64, got %d", maxLine)
	}
	cfg.MaxLineBytes = maxLine

	seconds, err := getInt("WRITE_TIMEOUT_SECONDS", int(DefaultWriteTimeout/time.Second))
	if err != nil {
		return Config{}, err
	}
	if seconds <= 0 {
		return Config{}, fmt.Errorf("WRITE_TIMEOUT_SECONDS must be positive, got %d", seconds)
	}
	cfg.WriteTimeout = time.Duration(seconds) * time.Second

	return cfg, nil
}

// UsesPostgres reports whether the PostgreSQL backend is selected.
func (c Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
