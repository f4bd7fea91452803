package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/mapleads/internal/progress"
)

// Defaults carried over from the hosted lead form.
const (
	DefaultMaxResults      = 50
	DefaultMaxRuns         = 3
	DefaultStateKey        = "remainingRuns"
	DefaultFilenamePrefix  = "google-maps-leads"
	DefaultWarningDuration = 3 * time.Second
	DefaultMaxBodySize     = 64 * 1024 * 1024
)

// Config defines configuration for the mapleads CLI.
type Config struct {
	WebhookURL       string        `yaml:"webhook_url"`
	MaxResults       int           `yaml:"max_results"`
	MaxRuns          int           `yaml:"max_runs"`
	StateURL         string        `yaml:"state_url"`
	StateKey         string        `yaml:"state_key"`
	OutputURL        string        `yaml:"output_url"`
	FilenamePrefix   string        `yaml:"filename_prefix"`
	FetchDownloadURL bool          `yaml:"fetch_download_url"`
	Timeout          time.Duration `yaml:"timeout"`
	WarningDuration  time.Duration `yaml:"warning_duration"`
	MaxBodySize      int64         `yaml:"max_body_size"`
	MetricsFile      string        `yaml:"metrics_file"`
	Redis            RedisConfig   `yaml:"redis"`
	Log              LogConfig     `yaml:"log"`
}

// RedisConfig selects Redis as the quota store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		MaxResults:      DefaultMaxResults,
		MaxRuns:         DefaultMaxRuns,
		StateURL:        defaultStateURL(),
		StateKey:        DefaultStateKey,
		OutputURL:       "file://.",
		FilenamePrefix:  DefaultFilenamePrefix,
		WarningDuration: DefaultWarningDuration,
		MaxBodySize:     DefaultMaxBodySize,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// defaultStateURL points at a per-user directory, the CLI's equivalent of
// browser local storage.
func defaultStateURL() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return "file://" + filepath.ToSlash(filepath.Join(dir, "mapleads")) + "?create_dir=true"
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	WebhookURL       string      `yaml:"webhook_url"`
	MaxResults       int         `yaml:"max_results"`
	MaxRuns          int         `yaml:"max_runs"`
	StateURL         string      `yaml:"state_url"`
	StateKey         string      `yaml:"state_key"`
	OutputURL        string      `yaml:"output_url"`
	FilenamePrefix   string      `yaml:"filename_prefix"`
	FetchDownloadURL bool        `yaml:"fetch_download_url"`
	Timeout          string      `yaml:"timeout"`
	WarningDuration  string      `yaml:"warning_duration"`
	MaxBodySize      string      `yaml:"max_body_size"`
	MetricsFile      string      `yaml:"metrics_file"`
	Redis            RedisConfig `yaml:"redis"`
	Log              LogConfig   `yaml:"log"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		WebhookURL:       yc.WebhookURL,
		MaxResults:       yc.MaxResults,
		MaxRuns:          yc.MaxRuns,
		StateURL:         yc.StateURL,
		StateKey:         yc.StateKey,
		OutputURL:        yc.OutputURL,
		FilenamePrefix:   yc.FilenamePrefix,
		FetchDownloadURL: yc.FetchDownloadURL,
		MetricsFile:      yc.MetricsFile,
		Redis:            yc.Redis,
		Log:              yc.Log,
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		override.Timeout = d
	}
	if yc.WarningDuration != "" {
		d, err := time.ParseDuration(yc.WarningDuration)
		if err != nil {
			return Config{}, fmt.Errorf("parse warning_duration: %w", err)
		}
		override.WarningDuration = d
	}
	if yc.MaxBodySize != "" {
		size, err := progress.ParseBytes(yc.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_body_size: %w", err)
		}
		override.MaxBodySize = size
	}

	return Default().Merge(override), nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the MAPLEADS_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MAPLEADS_WEBHOOK_URL"); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv("MAPLEADS_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_MAX_RESULTS: %w", err)
		}
		c.MaxResults = n
	}
	if v := os.Getenv("MAPLEADS_MAX_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_MAX_RUNS: %w", err)
		}
		c.MaxRuns = n
	}
	if v := os.Getenv("MAPLEADS_STATE_URL"); v != "" {
		c.StateURL = v
	}
	if v := os.Getenv("MAPLEADS_STATE_KEY"); v != "" {
		c.StateKey = v
	}
	if v := os.Getenv("MAPLEADS_OUTPUT_URL"); v != "" {
		c.OutputURL = v
	}
	if v := os.Getenv("MAPLEADS_FILENAME_PREFIX"); v != "" {
		c.FilenamePrefix = v
	}
	if v := os.Getenv("MAPLEADS_FETCH_DOWNLOAD_URL"); v != "" {
		c.FetchDownloadURL = v == "true" || v == "1"
	}
	if v := os.Getenv("MAPLEADS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("MAPLEADS_WARNING_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_WARNING_DURATION: %w", err)
		}
		c.WarningDuration = d
	}
	if v := os.Getenv("MAPLEADS_MAX_BODY_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_MAX_BODY_SIZE: %w", err)
		}
		c.MaxBodySize = size
	}
	if v := os.Getenv("MAPLEADS_METRICS_FILE"); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv("MAPLEADS_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("MAPLEADS_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("MAPLEADS_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAPLEADS_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v := os.Getenv("MAPLEADS_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MAPLEADS_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

// Validate validates the configuration needed to submit.
func (c *Config) Validate() error {
	if err := c.ValidateQuota(); err != nil {
		return err
	}
	if c.WebhookURL == "" {
		return errors.New("config: webhook URL is required")
	}
	if c.MaxResults <= 0 {
		return errors.New("config: max_results must be positive")
	}
	if c.OutputURL == "" {
		return errors.New("config: output_url is required")
	}
	if c.FilenamePrefix == "" {
		return errors.New("config: filename_prefix is required")
	}
	if c.MaxBodySize <= 0 {
		return errors.New("config: max_body_size must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	return nil
}

// ValidateQuota checks only what the status and reset commands need.
func (c *Config) ValidateQuota() error {
	if c.MaxRuns <= 0 {
		return errors.New("config: max_runs must be positive")
	}
	if c.StateKey == "" {
		return errors.New("config: state_key is required")
	}
	if c.Redis.Addr == "" && c.StateURL == "" {
		return errors.New("config: state_url or redis.addr is required")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.WebhookURL != "" {
		c.WebhookURL = override.WebhookURL
	}
	if override.MaxResults != 0 {
		c.MaxResults = override.MaxResults
	}
	if override.MaxRuns != 0 {
		c.MaxRuns = override.MaxRuns
	}
	if override.StateURL != "" {
		c.StateURL = override.StateURL
	}
	if override.StateKey != "" {
		c.StateKey = override.StateKey
	}
	if override.OutputURL != "" {
		c.OutputURL = override.OutputURL
	}
	if override.FilenamePrefix != "" {
		c.FilenamePrefix = override.FilenamePrefix
	}
	if override.FetchDownloadURL {
		c.FetchDownloadURL = override.FetchDownloadURL
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.WarningDuration != 0 {
		c.WarningDuration = override.WarningDuration
	}
	if override.MaxBodySize != 0 {
		c.MaxBodySize = override.MaxBodySize
	}
	if override.MetricsFile != "" {
		c.MetricsFile = override.MetricsFile
	}
	if override.Redis.Addr != "" {
		c.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		c.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		c.Redis.DB = override.Redis.DB
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}
