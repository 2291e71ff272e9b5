// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Site      SiteConfig      `mapstructure:"site"`
	Store     StoreConfig     `mapstructure:"store"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Server    ServerConfig    `mapstructure:"server"`
	Import    ImportConfig    `mapstructure:"import"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlConfig governs the bidirectional crawl loops.
type CrawlConfig struct {
	StartID                 int64 `mapstructure:"start_id"`
	BatchSize               int   `mapstructure:"batch_size"`
	BatchDelaySeconds       int   `mapstructure:"batch_delay_seconds"`
	EmptyBatchBackoffSecs   int   `mapstructure:"empty_batch_backoff_seconds"`
	RetryDelaySeconds       int   `mapstructure:"retry_delay_seconds"`
	Floor                   int64 `mapstructure:"floor"`
	Ceiling                 int64 `mapstructure:"ceiling"`
	PeakRegisteredThreshold int   `mapstructure:"peak_registered_threshold"`
	PeakBackoffSeconds      int   `mapstructure:"peak_backoff_seconds"`
}

// SiteConfig locates the remote site and the optional session cookies
// used for registered-only journals.
type SiteConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
	CookieA           string  `mapstructure:"cookie_a"`
	CookieB           string  `mapstructure:"cookie_b"`
}

// StoreConfig controls access to the relational record store.
type StoreConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// ArtifactsConfig sets the root of the sharded page cache.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ImportConfig bounds the bulk-import worker pool.
type ImportConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOURNALISER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.start_id", 10923887)
	v.SetDefault("crawl.batch_size", 5)
	v.SetDefault("crawl.batch_delay_seconds", 1)
	v.SetDefault("crawl.empty_batch_backoff_seconds", 10)
	v.SetDefault("crawl.retry_delay_seconds", 15)
	v.SetDefault("crawl.floor", 0)
	v.SetDefault("crawl.ceiling", 0)
	v.SetDefault("crawl.peak_registered_threshold", 10000)
	v.SetDefault("crawl.peak_backoff_seconds", 30)
	v.SetDefault("site.base_url", "https://www.furaffinity.net")
	v.SetDefault("site.user_agent", "journaliser/0.1")
	v.SetDefault("site.timeout_seconds", 30)
	v.SetDefault("site.requests_per_second", 0)
	v.SetDefault("site.request_burst", 1)
	v.SetDefault("store.max_open_conns", 8)
	v.SetDefault("store.min_idle_conns", 1)
	v.SetDefault("artifacts.dir", "store")
	v.SetDefault("server.port", 7074)
	v.SetDefault("import.concurrency", 8)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.StartID <= 0 {
		return fmt.Errorf("crawl.start_id must be > 0")
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be > 0")
	}
	if c.Crawl.Floor < 0 {
		return fmt.Errorf("crawl.floor must be >= 0")
	}
	if c.Crawl.Ceiling != 0 && c.Crawl.Ceiling <= c.Crawl.Floor {
		return fmt.Errorf("crawl.ceiling must be > crawl.floor when set")
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if c.Site.RequestsPerSecond < 0 {
		return fmt.Errorf("site.requests_per_second must be >= 0")
	}
	if (c.Site.CookieA == "") != (c.Site.CookieB == "") {
		return fmt.Errorf("site.cookie_a and site.cookie_b must be set together")
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir must be set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Import.Concurrency <= 0 {
		return fmt.Errorf("import.concurrency must be > 0")
	}
	return nil
}

// BatchDelay converts the crawl pacing knobs into durations.
func (c CrawlConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySeconds) * time.Second
}

// EmptyBatchBackoff returns the all-NotFound batch backoff.
func (c CrawlConfig) EmptyBatchBackoff() time.Duration {
	return time.Duration(c.EmptyBatchBackoffSecs) * time.Second
}

// RetryDelay returns the truncated-page retry delay.
func (c CrawlConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// PeakBackoff returns the peak-load throttle sleep.
func (c CrawlConfig) PeakBackoff() time.Duration {
	return time.Duration(c.PeakBackoffSeconds) * time.Second
}

// Timeout returns the transport request timeout.
func (c SiteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
