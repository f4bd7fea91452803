package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ligustah/mapleads/internal/config"
	"github.com/ligustah/mapleads/internal/logger"
	"github.com/ligustah/mapleads/internal/metrics"
	"github.com/ligustah/mapleads/internal/progress"
)

// runStatus prints the remaining free searches without consuming any.
func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: mapleads status [options]

Show how many free searches are left.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(common, config.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return ExitInvalidArgs
	}
	if err := cfg.ValidateQuota(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	log := logger.NewOrNop(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	tracker, closeStore, err := openTracker(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening quota store: %v\n", err)
		return ExitStorageError
	}
	defer closeStore()

	remaining, err := tracker.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading quota: %v\n", err)
		return ExitStorageError
	}

	rec := metrics.New()
	rec.SetRemaining(remaining)
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn("write metrics textfile", zap.String("path", cfg.MetricsFile), zap.Error(err))
	}

	reporter := progress.NewReporter(progress.Options{Output: os.Stdout})
	if tracker.IsExhausted() {
		reporter.ShowLimitReached()
		return ExitSuccess
	}
	reporter.SetRemaining(remaining, remaining == 1)
	fmt.Printf("[mapleads] Limit: %d\n", tracker.MaxRuns())

	return ExitSuccess
}
