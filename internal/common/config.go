// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/folio/internal/models"
)

// Config holds all configuration for Folio
type Config struct {
	Environment       string          `toml:"environment"`
	Portfolio         string          `toml:"portfolio"`          // default portfolio ID
	ReportingCurrency string          `toml:"reporting_currency"` // currency every *Eur amount is expressed in
	Storage           StorageConfig   `toml:"storage"`
	Logging           LoggingConfig   `toml:"logging"`
	Valuation         ValuationConfig `toml:"valuation"`
	Returns           ReturnsConfig   `toml:"returns"`
	Sync              SyncConfig      `toml:"sync"`
	Chart             ChartConfig     `toml:"chart"`
	Clients           ClientsConfig   `toml:"clients"`
}

// StorageConfig holds the workspace location
type StorageConfig struct {
	Path      string `toml:"path"`      // directory holding workspace files
	Workspace string `toml:"workspace"` // workspace file name inside Path
	Versions  int    `toml:"versions"`  // backups kept of the workspace file (0 = disabled)
}

// WorkspaceFile returns the full path of the workspace file
func (c StorageConfig) WorkspaceFile() string {
	return filepath.Join(c.Path, c.Workspace)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "json" or "console"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// ValuationConfig tunes point-in-time valuation
type ValuationConfig struct {
	StalePriceHours int               `toml:"stale_price_hours"`
	DefaultBands    models.BandConfig `toml:"default_bands"` // used when a portfolio carries none
}

// StaleAfter returns the stale-price threshold as a duration
func (c ValuationConfig) StaleAfter() time.Duration {
	if c.StalePriceHours <= 0 {
		return FreshnessPriceCache
	}
	return time.Duration(c.StalePriceHours) * time.Hour
}

// ReturnsConfig tunes historical return calculation
type ReturnsConfig struct {
	LookbackDays int `toml:"lookback_days"` // max days to walk back for a trading-day close
}

// SyncConfig holds price sync settings
type SyncConfig struct {
	MinRequestDelay string `toml:"min_request_delay"`
	RequestTimeout  string `toml:"request_timeout"`
	HistoryDays     int    `toml:"history_days"` // depth of the first history fetch for a symbol
}

// GetMinRequestDelay parses and returns the minimum delay between outbound requests
func (c *SyncConfig) GetMinRequestDelay() time.Duration {
	d, err := time.ParseDuration(c.MinRequestDelay)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// GetRequestTimeout parses and returns the per-request timeout
func (c *SyncConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ChartConfig holds chart rendering defaults
type ChartConfig struct {
	DefaultRange string `toml:"default_range"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:       "development",
		ReportingCurrency: "EUR",
		Storage: StorageConfig{
			Path:      "data",
			Workspace: "workspace.json",
			Versions:  5,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/folio.log",
		},
		Valuation: ValuationConfig{
			StalePriceHours: 24,
			DefaultBands:    models.DefaultBandConfig(),
		},
		Returns: ReturnsConfig{
			LookbackDays: 5,
		},
		Sync: SyncConfig{
			MinRequestDelay: "2s",
			RequestTimeout:  "30s",
			HistoryDays:     365,
		},
		Chart: ChartConfig{
			DefaultRange: string(models.DefaultChartRange),
			Width:        900,
			Height:       400,
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalize(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if p := os.Getenv("FOLIO_PORTFOLIO"); p != "" {
		config.Portfolio = p
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FOLIO_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if rc := os.Getenv("FOLIO_REPORTING_CURRENCY"); rc != "" {
		config.ReportingCurrency = strings.ToUpper(rc)
	}

	if v := os.Getenv("FOLIO_STALE_PRICE_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			config.Valuation.StalePriceHours = h
		}
	}

	if v := os.Getenv("FOLIO_LOOKBACK_DAYS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			config.Returns.LookbackDays = d
		}
	}

	if v := os.Getenv("FOLIO_SYNC_MIN_DELAY"); v != "" {
		config.Sync.MinRequestDelay = v
	}

	for _, name := range []string{"EODHD_API_KEY", "FOLIO_EODHD_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Clients.EODHD.APIKey = key
		}
	}
}

// normalize fills values a partial config file may have zeroed
func normalize(config *Config) {
	config.ReportingCurrency = strings.ToUpper(strings.TrimSpace(config.ReportingCurrency))
	if config.ReportingCurrency == "" {
		config.ReportingCurrency = "EUR"
	}
	if config.Returns.LookbackDays < 0 {
		config.Returns.LookbackDays = 0
	}
	if config.Storage.Versions < 0 {
		config.Storage.Versions = 0
	}
	if config.Storage.Workspace == "" {
		config.Storage.Workspace = "workspace.json"
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
