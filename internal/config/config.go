package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDir is the per-project ledger directory.
const DefaultDir = ".worklog"

// Config defines worklog configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type LedgerConfig struct {
	Dir           string        `yaml:"dir"`
	DebtThreshold int           `yaml:"debt_threshold"`
	LockTimeout   time.Duration `yaml:"lock_timeout"`
	DeferAnalysis bool          `yaml:"defer_analysis"`
}

type HistoryConfig struct {
	// Backend is "json" or "sqlite".
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`
	// Token, when set, is required as a bearer token on HTTP requests.
	Token string `yaml:"token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// StatePath is the ledger file location.
func (c Config) StatePath() string {
	return filepath.Join(c.Ledger.Dir, "ledger.json")
}

// HistoryPath is the JSON history file location.
func (c Config) HistoryPath() string {
	return filepath.Join(c.Ledger.Dir, "history.json")
}

// HistoryDBPath is the SQLite history database location.
func (c Config) HistoryDBPath() string {
	if c.History.SQLitePath != "" {
		return c.History.SQLitePath
	}
	return filepath.Join(c.Ledger.Dir, "history.db")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Ledger: LedgerConfig{
			Dir:           DefaultDir,
			DebtThreshold: 6,
			LockTimeout:   5 * time.Second,
		},
		History: HistoryConfig{
			Backend: "json",
		},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			Transport: "stdio",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// The file is WORKLOG_CONFIG_PATH when set, otherwise config.yaml inside the
// ledger directory if it exists.
func Load() (Config, error) {
	cfg := Default()

	dir := DefaultDir
	if d := os.Getenv("WORKLOG_DIR"); d != "" {
		dir = d
	}

	if path := os.Getenv("WORKLOG_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	} else {
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			if err := loadFromFile(path, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Fallback returns the defaults with only the ledger directory taken from
// WORKLOG_DIR. Hooks run with it when Load fails so the agent is never
// blocked by a broken config file.
func Fallback() Config {
	cfg := Default()
	if dir := os.Getenv("WORKLOG_DIR"); dir != "" {
		cfg.Ledger.Dir = dir
	}
	return cfg
}

func applyEnv(cfg *Config) error {
	if dir := os.Getenv("WORKLOG_DIR"); dir != "" {
		cfg.Ledger.Dir = dir
	}
	if backend := os.Getenv("WORKLOG_HISTORY_BACKEND"); backend != "" {
		cfg.History.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv("WORKLOG_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if path := os.Getenv("WORKLOG_LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if host := os.Getenv("WORKLOG_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if token := os.Getenv("WORKLOG_SERVER_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if portStr := os.Getenv("WORKLOG_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid WORKLOG_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if thresholdStr := os.Getenv("WORKLOG_DEBT_THRESHOLD"); thresholdStr != "" {
		threshold, err := strconv.Atoi(thresholdStr)
		if err != nil {
			return fmt.Errorf("invalid WORKLOG_DEBT_THRESHOLD: %w", err)
		}
		cfg.Ledger.DebtThreshold = threshold
	}
	if deferStr := os.Getenv("WORKLOG_DEFER_ANALYSIS"); deferStr != "" {
		deferAnalysis, err := strconv.ParseBool(deferStr)
		if err != nil {
			return fmt.Errorf("invalid WORKLOG_DEFER_ANALYSIS: %w", err)
		}
		cfg.Ledger.DeferAnalysis = deferAnalysis
	}
	if timeoutStr := os.Getenv("WORKLOG_LOCK_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid WORKLOG_LOCK_TIMEOUT: %w", err)
		}
		cfg.Ledger.LockTimeout = timeout
	}
	return nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c Config) Validate() error {
	switch c.History.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown server transport %q", c.Server.Transport)
	}
	if c.Ledger.Dir == "" {
		return errors.New("ledger dir is required")
	}
	if c.Ledger.LockTimeout <= 0 {
		return errors.New("ledger lock_timeout must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
