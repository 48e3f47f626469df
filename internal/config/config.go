package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable import policy plus server settings. Values come
// from an optional YAML file with PF_* environment overrides on top.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Import ImportConfig `yaml:"import"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`
}

// ImportConfig holds the statement-import policy knobs. These are policy
// constants, not magic numbers: the defaults are documented here and every
// one can be overridden.
type ImportConfig struct {
	// DedupWindowDays bounds the row-level duplicate search: persisted
	// transactions within this many days of a candidate's date are
	// compared against it.
	DedupWindowDays int `yaml:"dedup_window_days"`

	// FutureFraction is the share of year-inferred dates that must land in
	// the future before the whole batch is shifted back one year.
	FutureFraction float64 `yaml:"future_fraction"`

	// PageSize is the review screen page size.
	PageSize int `yaml:"page_size"`

	// BatchTTLMinutes is how long a staged batch survives without activity
	// before it expires.
	BatchTTLMinutes int `yaml:"batch_ttl_minutes"`

	// RepairDaysAhead is the slack before a committed transaction date
	// counts as suspiciously future for the repair tool.
	RepairDaysAhead int `yaml:"repair_days_ahead"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   "8080",
			DBPath: "./data/personalfinance.db",
		},
		Import: ImportConfig{
			DedupWindowDays: 5,
			FutureFraction:  0.5,
			PageSize:        100,
			BatchTTLMinutes: 60,
			RepairDaysAhead: 30,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty and the file exists), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("PF_DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v, ok := envInt("PF_DEDUP_WINDOW_DAYS"); ok {
		c.Import.DedupWindowDays = v
	}
	if v := os.Getenv("PF_FUTURE_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Import.FutureFraction = f
		}
	}
	if v, ok := envInt("PF_PAGE_SIZE"); ok {
		c.Import.PageSize = v
	}
	if v, ok := envInt("PF_BATCH_TTL_MINUTES"); ok {
		c.Import.BatchTTLMinutes = v
	}
	if v, ok := envInt("PF_REPAIR_DAYS_AHEAD"); ok {
		c.Import.RepairDaysAhead = v
	}
}

func (c *Config) validate() error {
	if c.Import.DedupWindowDays < 0 {
		return fmt.Errorf("dedup_window_days must be >= 0")
	}
	if c.Import.FutureFraction <= 0 || c.Import.FutureFraction > 1 {
		return fmt.Errorf("future_fraction must be in (0, 1]")
	}
	if c.Import.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1")
	}
	if c.Import.BatchTTLMinutes < 1 {
		return fmt.Errorf("batch_ttl_minutes must be >= 1")
	}
	return nil
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
