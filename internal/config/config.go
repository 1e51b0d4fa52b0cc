// Package config defines service configuration and how it is loaded.
//
// Precedence (low -> high): defaults from New, the YAML file named by
// MI_CONFIG, then MI_* environment variables.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is the local directory artifacts are read from. Ignored when
	// DataBaseURL is set.
	DataDir string `koanf:"data_dir"`

	// DataBaseURL is an HTTP origin artifacts are fetched from.
	DataBaseURL string `koanf:"data_base_url"`

	// Artifact names, relative to the data source.
	ScreenerFile     string `koanf:"screener_file"`
	DashboardFile    string `koanf:"dashboard_file"`
	TierBacktestFile string `koanf:"tier_backtest_file"`
	PortfolioFile    string `koanf:"portfolio_file"`
	TickerHistoryDir string `koanf:"ticker_history_dir"`

	// TopN is the size of the leader set tagged over the whole dataset.
	TopN int `koanf:"top_n"`

	// TierScheme selects the tier bands: "A" or "B".
	TierScheme string `koanf:"tier_scheme"`

	// ReturnScale is how screener returns are stored: "decimal" or "auto".
	ReturnScale string `koanf:"return_scale"`

	// FavoritesDB is the SQLite DSN for favorites; empty keeps them in memory.
	FavoritesDB  string `koanf:"favorites_db"`
	FavoritesKey string `koanf:"favorites_key"`

	// WorkerCount sets the number of load workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds pending load requests.
	QueueSize int `koanf:"queue_size"`

	// RefreshIntervalSec re-loads the dataset periodically; 0 disables.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	// FetchTimeoutMS bounds one HTTP artifact fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxPageLimit caps GET /api/screener?limit.
	MaxPageLimit int `koanf:"max_page_limit"`

	// ReloadPerMinute limits POST /api/reload.
	ReloadPerMinute int `koanf:"reload_per_minute"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		DataDir:            "./data",
		ScreenerFile:       "screener.csv",
		DashboardFile:      "dashboard_data.json",
		TierBacktestFile:   "tier_backtest.json",
		PortfolioFile:      "model_portfolio.json",
		TickerHistoryDir:   "ticker_history",
		TopN:               100,
		TierScheme:         "A",
		ReturnScale:        "decimal",
		FavoritesDB:        "",
		FavoritesKey:       "mi_favs",
		WorkerCount:        1,
		QueueSize:          16,
		RefreshIntervalSec: 0,
		FetchTimeoutMS:     10_000,
		MaxPageLimit:       500,
		ReloadPerMinute:    6,
	}
}

// RefreshInterval returns the periodic reload interval, 0 when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// FetchTimeout returns the HTTP fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}
