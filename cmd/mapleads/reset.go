package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/mapleads/internal/config"
	"github.com/ligustah/mapleads/internal/logger"
)

// runReset restores the free search counter to its maximum.
func runReset(args []string) int {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: mapleads reset [options]

Restore the free search counter to its maximum.

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

	if err := tracker.Reset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error resetting quota: %v\n", err)
		return ExitStorageError
	}

	fmt.Printf("[mapleads] Free searches reset to %d\n", tracker.MaxRuns())
	return ExitSuccess
}
