// Package config loads client configuration from a YAML file and environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Server
	ServerURL      string
	RequestTimeout time.Duration

	// Chat defaults
	UseAgent     bool
	HistoryLimit int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the optional on-disk overlay (~/.config/shodh/config.yaml).
type fileConfig struct {
	ServerURL      string `yaml:"server_url"`
	RequestTimeout string `yaml:"request_timeout"`
	UseAgent       *bool  `yaml:"use_agent"`
	HistoryLimit   *int   `yaml:"history_limit"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level"`
}

// Load builds the configuration: defaults, then the config file, then
// environment variables. A .env file in the working directory is honored.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ServerURL:      "http://localhost:8000/api",
		RequestTimeout: 30 * time.Second,
		HistoryLimit:   10,
		LogLevel:       slog.LevelInfo,
	}

	applyFile(&cfg, defaultConfigPath())

	if v := os.Getenv("SHODH_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("SHODH_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("SHODH_USE_AGENT"); v != "" {
		cfg.UseAgent = v == "true" || v == "1"
	}
	if v := os.Getenv("SHODH_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("SHODH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}

	return cfg
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "shodh", "config.yaml")
	}
	return ""
}

func applyFile(cfg *Config, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("ignoring malformed config file", "path", path, "error", err)
		return
	}
	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.RequestTimeout != "" {
		if d, err := time.ParseDuration(fc.RequestTimeout); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if fc.UseAgent != nil {
		cfg.UseAgent = *fc.UseAgent
	}
	if fc.HistoryLimit != nil && *fc.HistoryLimit > 0 {
		cfg.HistoryLimit = *fc.HistoryLimit
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = ParseLogLevel(fc.LogLevel)
	}
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
