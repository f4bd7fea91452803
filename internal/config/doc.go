// Package config defines configuration structures for the mapleads CLI.
//
// Configuration can be provided via, lowest precedence first:
//   - Built-in defaults
//   - YAML configuration file
//   - A .env file (variables already set in the environment win)
//   - Environment variables (MAPLEADS_ prefix)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    WebhookURL       string
//	    MaxResults       int
//	    MaxRuns          int
//	    StateURL         string
//	    StateKey         string
//	    OutputURL        string
//	    FilenamePrefix   string
//	    FetchDownloadURL bool
//	    Timeout          time.Duration
//	    WarningDuration  time.Duration
//	    MaxBodySize      int64
//	    MetricsFile      string
//	    Redis            RedisConfig
//	    Log              LogConfig
//	}
package config
