// Package config loads and validates the service configuration from a YAML
// file with environment-variable overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourcesConfig holds upstream source configuration.
type SourcesConfig struct {
	NSEBaseURL     string        `mapstructure:"nse_base_url"`
	BSEQuoteURL    string        `mapstructure:"bse_quote_url"`
	BSEDownloadDir string        `mapstructure:"bse_download_dir"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// SchedulerConfig holds the ingest trigger configuration.
type SchedulerConfig struct {
	DailyAt           string        `mapstructure:"daily_at"`
	MinRetriggerEvery time.Duration `mapstructure:"min_retrigger_every"`
	RunOnStartup      bool          `mapstructure:"run_on_startup"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	DatabaseFile string `mapstructure:"database_file"`
	MetadataFile string `mapstructure:"metadata_file"`
}

// CacheConfig bounds the quote and document caches.
type CacheConfig struct {
	QuoteCapacity    int           `mapstructure:"quote_capacity"`
	QuoteTTL         time.Duration `mapstructure:"quote_ttl"`
	DocumentCapacity int           `mapstructure:"document_capacity"`
	DocumentTTL      time.Duration `mapstructure:"document_ttl"`
}

// TelegramConfig holds ingest-report notification configuration.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("BULKDEALS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.nse_base_url", "https://www.nseindia.com")
	v.SetDefault("sources.bse_quote_url", "http://localhost:5000")
	v.SetDefault("sources.bse_download_dir", "./data/bulk-deals")
	v.SetDefault("sources.timeout", "15s")
	v.SetDefault("sources.max_retries", 3)

	// The exchanges publish the day's deal sheets shortly after the
	// 15:30 IST close; 18:02 leaves slack for late uploads.
	v.SetDefault("scheduler.daily_at", "18:02")
	v.SetDefault("scheduler.min_retrigger_every", "5m")
	v.SetDefault("scheduler.run_on_startup", false)

	v.SetDefault("store.data_dir", "./data/bulk-deals")
	v.SetDefault("store.database_file", "bulk_deals_database.json")
	v.SetDefault("store.metadata_file", "database_metadata.json")

	v.SetDefault("cache.quote_capacity", 512)
	v.SetDefault("cache.quote_ttl", "60s")
	v.SetDefault("cache.document_capacity", 64)
	v.SetDefault("cache.document_ttl", "30m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Sources.NSEBaseURL == "" {
		return fmt.Errorf("sources.nse_base_url is required")
	}
	if c.Sources.BSEDownloadDir == "" {
		return fmt.Errorf("sources.bse_download_dir is required")
	}
	if c.Sources.Timeout < time.Second {
		return fmt.Errorf("sources.timeout must be at least 1 second")
	}
	if c.Sources.MaxRetries < 1 {
		return fmt.Errorf("sources.max_retries must be at least 1")
	}

	if _, err := time.Parse("15:04", c.Scheduler.DailyAt); err != nil {
		return fmt.Errorf("scheduler.daily_at must be HH:MM")
	}
	if c.Scheduler.MinRetriggerEvery < time.Minute {
		return fmt.Errorf("scheduler.min_retrigger_every must be at least 1 minute")
	}

	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Store.DatabaseFile == "" {
		return fmt.Errorf("store.database_file is required")
	}
	if c.Store.MetadataFile == "" {
		return fmt.Errorf("store.metadata_file is required")
	}

	if c.Cache.QuoteCapacity < 1 {
		return fmt.Errorf("cache.quote_capacity must be at least 1")
	}
	if c.Cache.QuoteTTL < time.Second {
		return fmt.Errorf("cache.quote_ttl must be at least 1 second")
	}
	if c.Cache.DocumentCapacity < 1 {
		return fmt.Errorf("cache.document_capacity must be at least 1")
	}
	if c.Cache.DocumentTTL < time.Second {
		return fmt.Errorf("cache.document_ttl must be at least 1 second")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}

	return nil
}
