package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.MaxResults != 50 {
		t.Errorf("expected default max results 50, got %d", cfg.MaxResults)
	}
	if cfg.MaxRuns != 3 {
		t.Errorf("expected default max runs 3, got %d", cfg.MaxRuns)
	}
	if cfg.StateKey != "remainingRuns" {
		t.Errorf("expected default state key remainingRuns, got %s", cfg.StateKey)
	}
	if cfg.FilenamePrefix != "google-maps-leads" {
		t.Errorf("expected default prefix google-maps-leads, got %s", cfg.FilenamePrefix)
	}
	if cfg.WarningDuration != 3*time.Second {
		t.Errorf("expected default warning duration 3s, got %v", cfg.WarningDuration)
	}
	if cfg.MaxBodySize != 64*1024*1024 {
		t.Errorf("expected default max body size 64MB, got %d", cfg.MaxBodySize)
	}
	if cfg.Timeout != 0 {
		t.Errorf("expected no default timeout, got %v", cfg.Timeout)
	}
	if !strings.HasPrefix(cfg.StateURL, "file://") {
		t.Errorf("expected file:// state URL, got %s", cfg.StateURL)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
webhook_url: https://hooks.example.com/leads
max_results: 20
max_runs: 5
output_url: mem://
fetch_download_url: true
timeout: 45s
warning_duration: 1s
max_body_size: 8MB
redis:
  addr: localhost:6379
  db: 2
log:
  level: debug
  format: json
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.WebhookURL != "https://hooks.example.com/leads" {
		t.Errorf("unexpected webhook URL %s", cfg.WebhookURL)
	}
	if cfg.MaxResults != 20 {
		t.Errorf("expected max results 20, got %d", cfg.MaxResults)
	}
	if cfg.MaxRuns != 5 {
		t.Errorf("expected max runs 5, got %d", cfg.MaxRuns)
	}
	if cfg.OutputURL != "mem://" {
		t.Errorf("expected output mem://, got %s", cfg.OutputURL)
	}
	if !cfg.FetchDownloadURL {
		t.Error("expected fetch_download_url true")
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Timeout)
	}
	if cfg.WarningDuration != time.Second {
		t.Errorf("expected warning duration 1s, got %v", cfg.WarningDuration)
	}
	if cfg.MaxBodySize != 8*1024*1024 {
		t.Errorf("expected max body size 8MB, got %d", cfg.MaxBodySize)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	// Untouched keys keep their defaults.
	if cfg.StateKey != "remainingRuns" {
		t.Errorf("expected default state key preserved, got %s", cfg.StateKey)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MAPLEADS_WEBHOOK_URL", "https://env.example.com/hook")
	t.Setenv("MAPLEADS_MAX_RESULTS", "10")
	t.Setenv("MAPLEADS_MAX_RUNS", "7")
	t.Setenv("MAPLEADS_FETCH_DOWNLOAD_URL", "1")
	t.Setenv("MAPLEADS_TIMEOUT", "500ms")
	t.Setenv("MAPLEADS_REDIS_ADDR", "redis:6379")
	t.Setenv("MAPLEADS_LOG_FORMAT", "json")
	t.Setenv("MAPLEADS_MAX_BODY_SIZE", "512KB")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.WebhookURL != "https://env.example.com/hook" {
		t.Errorf("unexpected webhook URL %s", cfg.WebhookURL)
	}
	if cfg.MaxResults != 10 {
		t.Errorf("expected max results 10, got %d", cfg.MaxResults)
	}
	if cfg.MaxRuns != 7 {
		t.Errorf("expected max runs 7, got %d", cfg.MaxRuns)
	}
	if !cfg.FetchDownloadURL {
		t.Error("expected fetch download URL true")
	}
	if cfg.Timeout != 500*time.Millisecond {
		t.Errorf("expected timeout 500ms, got %v", cfg.Timeout)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("expected redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
	if cfg.MaxBodySize != 512*1024 {
		t.Errorf("expected max body size 512KB, got %d", cfg.MaxBodySize)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("MAPLEADS_MAX_RUNS", "three")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for non-numeric MAPLEADS_MAX_RUNS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("MAPLEADS_FILENAME_PREFIX=dotenv-leads\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// Registers cleanup for the variable godotenv is about to set.
	t.Setenv("MAPLEADS_FILENAME_PREFIX", "")
	os.Unsetenv("MAPLEADS_FILENAME_PREFIX")

	if err := LoadDotEnv(envPath, filepath.Join(tmpDir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.FilenamePrefix != "dotenv-leads" {
		t.Errorf("expected prefix from .env, got %s", cfg.FilenamePrefix)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.WebhookURL = "https://hooks.example.com/leads"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing webhook", mutate: func(c *Config) { c.WebhookURL = "" }, wantErr: true},
		{name: "zero max results", mutate: func(c *Config) { c.MaxResults = 0 }, wantErr: true},
		{name: "zero max runs", mutate: func(c *Config) { c.MaxRuns = 0 }, wantErr: true},
		{name: "missing state key", mutate: func(c *Config) { c.StateKey = "" }, wantErr: true},
		{name: "no state store", mutate: func(c *Config) { c.StateURL = "" }, wantErr: true},
		{name: "redis instead of bucket", mutate: func(c *Config) { c.StateURL = ""; c.Redis.Addr = "localhost:6379" }},
		{name: "missing output", mutate: func(c *Config) { c.OutputURL = "" }, wantErr: true},
		{name: "zero max body size", mutate: func(c *Config) { c.MaxBodySize = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuotaIgnoresWebhook(t *testing.T) {
	cfg := Default()
	if err := cfg.ValidateQuota(); err != nil {
		t.Errorf("ValidateQuota() on defaults: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should still require a webhook URL")
	}

	cfg.MaxRuns = -1
	if err := cfg.ValidateQuota(); err == nil {
		t.Error("expected error for negative max runs")
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	base.WebhookURL = "https://hooks.example.com/leads"
	base.OutputURL = "file:///tmp/out"

	override := Config{
		MaxResults: 25,
	}

	merged := base.Merge(override)

	if merged.WebhookURL != "https://hooks.example.com/leads" {
		t.Errorf("expected webhook preserved, got %s", merged.WebhookURL)
	}
	if merged.OutputURL != "file:///tmp/out" {
		t.Errorf("expected output preserved, got %s", merged.OutputURL)
	}
	if merged.MaxRuns != 3 {
		t.Errorf("expected MaxRuns preserved, got %d", merged.MaxRuns)
	}
	if merged.MaxResults != 25 {
		t.Errorf("expected MaxResults overridden to 25, got %d", merged.MaxResults)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadYAMLInvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("timeout: soon\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid duration")
	}
}
