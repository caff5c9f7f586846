package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
sources:
  nse_base_url: "https://www.nseindia.com"
  bse_download_dir: "./data/bulk-deals"
  timeout: 15s
  max_retries: 3

scheduler:
  daily_at: "18:02"
  min_retrigger_every: 5m

store:
  data_dir: "./data/bulk-deals"
  database_file: "bulk_deals_database.json"
  metadata_file: "database_metadata.json"

cache:
  quote_capacity: 512
  quote_ttl: 60s
  document_capacity: 64
  document_ttl: 30m

telegram:
  enabled: false

logging:
  level: "info"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Scheduler.DailyAt != "18:02" {
		t.Errorf("DailyAt = %q, want 18:02", cfg.Scheduler.DailyAt)
	}
	if cfg.Cache.QuoteTTL != 60*time.Second {
		t.Errorf("QuoteTTL = %v, want 60s", cfg.Cache.QuoteTTL)
	}
	if cfg.Sources.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Sources.MaxRetries)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	// A minimal file: everything else comes from defaults.
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	if cfg.Scheduler.DailyAt != "18:02" {
		t.Errorf("default DailyAt = %q, want 18:02", cfg.Scheduler.DailyAt)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want the file's debug", cfg.Logging.Level)
	}
	if cfg.Cache.QuoteCapacity != 512 {
		t.Errorf("default QuoteCapacity = %d, want 512", cfg.Cache.QuoteCapacity)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		path := writeConfig(t, "logging:\n  level: info\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{
			name:    "bad daily_at",
			mutate:  func(c *Config) { c.Scheduler.DailyAt = "6pm" },
			wantMsg: "daily_at",
		},
		{
			name:    "retrigger floor too small",
			mutate:  func(c *Config) { c.Scheduler.MinRetriggerEvery = time.Second },
			wantMsg: "min_retrigger_every",
		},
		{
			name:    "zero cache capacity",
			mutate:  func(c *Config) { c.Cache.QuoteCapacity = 0 },
			wantMsg: "quote_capacity",
		},
		{
			name:    "telegram enabled without token",
			mutate:  func(c *Config) { c.Telegram.Enabled = true },
			wantMsg: "bot_token",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantMsg: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
