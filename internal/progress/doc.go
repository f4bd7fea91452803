// Package progress renders lead form state in a terminal.
//
// The Reporter implements form.View: it prints the remaining free searches,
// warnings, a loading spinner while the webhook works, and where the leads
// were saved.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Output:  os.Stderr,
//	    Spinner: isTerminal,
//	})
//	defer reporter.Stop()
//
//	d := form.NewDispatcher(tracker, client, exporter, reporter, opts)
//
// # Output Format
//
//	[mapleads] Free searches remaining: 3
//	[mapleads] Sending request to https://hooks.example.com/leads
//	[mapleads] Processing your request... / 4s
//	[mapleads] Your leads are ready: google-maps-leads-2026-10-19.csv (12.40 KB)
//	[mapleads] Saved to: file:///home/me/leads/google-maps-leads-2026-10-19.csv
//	[mapleads] Free searches remaining: 1 (last one!)
package progress
