package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/ligustah/mapleads/internal/config"
	"github.com/ligustah/mapleads/internal/export"
	"github.com/ligustah/mapleads/internal/form"
	"github.com/ligustah/mapleads/internal/logger"
	"github.com/ligustah/mapleads/internal/metrics"
	"github.com/ligustah/mapleads/internal/progress"
	"github.com/ligustah/mapleads/internal/webhook"
)

// runSubmit sends one lead request to the webhook and saves the CSV it
// returns. Each successful run uses up one free search.
func runSubmit(args []string) int {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)

	var common commonFlags
	common.register(fs)
	query := fs.String("query", "", "Business type or keyword to search for (required)")
	location := fs.String("location", "", "City or area to search in (required)")
	results := fs.Int("results", 0, "Number of results to request (required, capped at max_results)")
	webhookURL := fs.String("webhook", "", "Webhook URL (overrides config)")
	output := fs.String("output", "", "Bucket URL to save the CSV into (default: current directory)")
	fetch := fs.Bool("fetch", false, "Download files the webhook links to instead of printing the link")
	timeout := fs.Duration("timeout", 0, "Request timeout (default: none)")
	showProgress := fs.Bool("progress", false, "Show an animated loading indicator")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: mapleads submit [options]

Request Google Maps leads for a search query and location. The webhook
answers with CSV data or a download link; CSV is saved to the output bucket.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(common, config.Config{
		WebhookURL:       *webhookURL,
		OutputURL:        *output,
		FetchDownloadURL: *fetch,
		Timeout:          *timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return ExitInvalidArgs
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
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

	out, err := blob.OpenBucket(ctx, cfg.OutputURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output bucket: %v\n", err)
		return ExitStorageError
	}
	defer out.Close()

	rec := metrics.New()
	defer func() {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("write metrics textfile", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}()

	client := webhook.NewClient(cfg.WebhookURL, webhook.Options{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodySize,
		Logger:       log,
	})

	reporter := progress.NewReporter(progress.Options{
		Output:         os.Stderr,
		UpdateInterval: 200 * time.Millisecond,
		Spinner:        *showProgress,
		WebhookURL:     client.Endpoint(),
	})
	defer reporter.Stop()

	dispatcher := form.NewDispatcher(tracker, client, export.New(out, cfg.OutputURL, log), reporter, form.Options{
		MaxResults:       cfg.MaxResults,
		FilenamePrefix:   cfg.FilenamePrefix,
		WarningDuration:  cfg.WarningDuration,
		FetchDownloadURL: cfg.FetchDownloadURL,
		OnTransition: func(from, to form.State) {
			log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
		},
		Logger:  log,
		Metrics: rec,
	})

	if err := dispatcher.Dispatch(ctx, form.InitEvent{}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	before := tracker.Remaining()
	rec.SetRemaining(before)

	err = dispatcher.Dispatch(ctx, form.SubmitEvent{Input: form.Input{
		SearchQuery:     *query,
		Location:        *location,
		NumberOfResults: *results,
	}})
	rec.SetRemaining(tracker.Remaining())
	if err != nil {
		if ctx.Err() != nil {
			if tracker.Remaining() == before {
				fmt.Fprintln(os.Stderr, "[mapleads] Submission interrupted, free search restored")
			} else {
				fmt.Fprintln(os.Stderr, "[mapleads] Submission interrupted, free search could not be restored")
			}
		}
		log.Debug("submit failed", zap.Error(err))
		return exitCode(err)
	}

	return ExitSuccess
}
