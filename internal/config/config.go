package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"snowball/internal/model"
)

// ConfigError reports an unusable configuration. It is fatal: the
// caller must not start a run when Load or Validate returns one.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all application configuration.
type Config struct {
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Watchlist map[string][]string `yaml:"watchlist"`
	Fetch     struct {
		HistoryStart   string `yaml:"history_start"` // YYYY-MM-DD
		HistoryDays    int    `yaml:"history_days"`
		TimeoutSec     int    `yaml:"timeout_seconds"`
		MaxRetries     int    `yaml:"max_retries"`
		BackoffSec     int    `yaml:"backoff_seconds"`
		MaxWindowHours int    `yaml:"max_window_hours"`
	} `yaml:"fetch"`
	Schedule struct {
		RollCron     string `yaml:"roll_cron"`
		BackfillCron string `yaml:"backfill_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. Unknown keys in the file are ignored.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: "read " + path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Reason: "parse " + path, Err: err}
	}

	// Environment variable overrides
	if v := os.Getenv("SNOWBALL_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_ROLL"); v != "" {
		cfg.Schedule.RollCron = v
	}
	if v := os.Getenv("CRON_BACKFILL"); v != "" {
		cfg.Schedule.BackfillCron = v
	}

	// Defaults
	if cfg.Fetch.HistoryDays == 0 {
		// Yahoo keeps about a week of 1-minute bars.
		cfg.Fetch.HistoryDays = 7
	}
	if cfg.Fetch.TimeoutSec == 0 {
		cfg.Fetch.TimeoutSec = 30
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = 3
	}
	if cfg.Fetch.BackoffSec == 0 {
		cfg.Fetch.BackoffSec = 2
	}
	if cfg.Fetch.MaxWindowHours == 0 {
		cfg.Fetch.MaxWindowHours = 24
	}
	if cfg.Schedule.RollCron == "" {
		// Every 15 minutes.
		cfg.Schedule.RollCron = "0 */15 * * * *"
	}
	if cfg.Schedule.BackfillCron == "" {
		// Daily, before US market open.
		cfg.Schedule.BackfillCron = "0 0 6 * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and parseable.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return &ConfigError{Reason: "storage.path is required"}
	}
	if len(c.Entries()) == 0 {
		return &ConfigError{Reason: "watchlist must contain at least one symbol"}
	}
	if c.Fetch.HistoryStart != "" {
		if _, err := time.Parse("2006-01-02", c.Fetch.HistoryStart); err != nil {
			return &ConfigError{Reason: "fetch.history_start must be YYYY-MM-DD", Err: err}
		}
	}
	return nil
}

// Entries returns the watchlist flattened to entries, sorted by
// category then symbol so runs process symbols in a stable order.
func (c *Config) Entries() []model.WatchlistEntry {
	var entries []model.WatchlistEntry
	for category, symbols := range c.Watchlist {
		for _, s := range symbols {
			if s == "" {
				continue
			}
			entries = append(entries, model.WatchlistEntry{Symbol: s, Category: category})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

// HistoryStart returns the beginning of the configured history horizon,
// truncated to the minute.
func (c *Config) HistoryStart(now time.Time) time.Time {
	if c.Fetch.HistoryStart != "" {
		if t, err := time.Parse("2006-01-02", c.Fetch.HistoryStart); err == nil {
			return t.UTC()
		}
	}
	return now.UTC().AddDate(0, 0, -c.Fetch.HistoryDays).Truncate(time.Minute)
}

// FetchTimeout returns the per-request HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSec) * time.Second
}

// RetryBackoff returns the base delay between fetch retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffSec) * time.Second
}

// MaxWindow returns the largest time range requested in one fetch.
func (c *Config) MaxWindow() time.Duration {
	return time.Duration(c.Fetch.MaxWindowHours) * time.Hour
}
