package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/mapleads/internal/config"
	"github.com/ligustah/mapleads/internal/quota"
)

// redisKeyPrefix namespaces the quota key in a shared Redis.
const redisKeyPrefix = "mapleads:"

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	envFile    string
	state      string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("MAPLEADS_CONFIG"), "Path to a YAML config file")
	fs.StringVar(&c.envFile, "env-file", ".env", "Path to a .env file (ignored when missing)")
	fs.StringVar(&c.state, "state", "", "Bucket URL holding the free search counter")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig layers defaults, the config file, the .env file, the
// environment and finally the command-line overrides.
func loadConfig(c commonFlags, override config.Config) (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		fileCfg, err := config.LoadFromFile(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
	}

	if err := config.LoadDotEnv(c.envFile); err != nil {
		return config.Config{}, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	override.StateURL = c.state
	override.Log.Level = c.logLevel
	return cfg.Merge(override), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[mapleads] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// openTracker opens the configured quota store and loads nothing yet.
// The returned close function releases the store.
func openTracker(ctx context.Context, cfg config.Config, log *zap.Logger) (*quota.Tracker, func() error, error) {
	var (
		store   quota.Store
		closeFn func() error
	)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = quota.NewRedisStore(client, redisKeyPrefix)
		closeFn = client.Close
		log.Debug("quota store opened", zap.String("redis", cfg.Redis.Addr))
	} else {
		bkt, err := blob.OpenBucket(ctx, cfg.StateURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open state bucket: %w", err)
		}
		store = quota.NewBlobStore(bkt)
		closeFn = bkt.Close
		log.Debug("quota store opened", zap.String("bucket", cfg.StateURL))
	}

	tracker := quota.NewTracker(store,
		quota.WithKey(cfg.StateKey),
		quota.WithMaxRuns(cfg.MaxRuns),
		quota.WithLogger(log),
	)
	return tracker, closeFn, nil
}
