package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tsawler/pagecheck/pages"
)

type Config struct {
	// Output
	Format     string
	CopyOutDir string

	// Logging
	LogLevel  string
	LogFormat string

	// Batch
	Workers int

	// Checks
	MaxPages int

	// HTTP server
	ServeAddr      string
	APIToken       string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Load reads the configuration from the environment. Each env file is
// loaded first if it exists; variables already set in the environment win
// over values from the files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Format:     envOr("PAGECHECK_FORMAT", "text"),
		CopyOutDir: os.Getenv("PAGECHECK_COPY_OUT"),

		LogLevel:  envOr("PAGECHECK_LOG_LEVEL", "info"),
		LogFormat: envOr("PAGECHECK_LOG_FORMAT", "text"),

		Workers: envInt("PAGECHECK_WORKERS", 4),

		MaxPages: envInt("PAGECHECK_MAX_PAGES", pages.DefaultMaxPages),

		ServeAddr:      os.Getenv("PAGECHECK_ADDR"),
		APIToken:       os.Getenv("PAGECHECK_API_TOKEN"),
		MaxUploadBytes: envInt64("PAGECHECK_MAX_UPLOAD_BYTES", 52428800), // 50MB
		ReadTimeout:    envDuration("PAGECHECK_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   envDuration("PAGECHECK_WRITE_TIMEOUT", 120*time.Second),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = pages.DefaultMaxPages
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Format {
	case "text", "json", "html":
	default:
		return fmt.Errorf("PAGECHECK_FORMAT must be text, json or html, got %q", c.Format)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("PAGECHECK_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("PAGECHECK_WORKERS must be positive, got %d", c.Workers)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("PAGECHECK_MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("PAGECHECK_MAX_PAGES must be positive, got %d", c.MaxPages)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
