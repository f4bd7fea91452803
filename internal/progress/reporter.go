package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ligustah/mapleads/internal/form"
)

var spinnerFrames = []string{"|", "/", "-", `\`}

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often the loading spinner advances.
	// Default: 200ms
	UpdateInterval time.Duration

	// Spinner enables the animated loading indicator. Disable it when the
	// output is not a terminal.
	Spinner bool

	// WebhookURL is shown when a submission starts.
	WebhookURL string
}

// Reporter renders submission state as human-readable terminal output.
// It implements form.View and is safe for concurrent use.
type Reporter struct {
	opts Options

	mu           sync.Mutex
	remaining    int
	low          bool
	formEnabled  bool
	warning      bool
	limitShown   bool
	loading      bool
	loadingSince time.Time
	stopCh       chan struct{}
	doneCh       chan struct{}
}

var _ form.View = (*Reporter)(nil)

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 200 * time.Millisecond
	}

	return &Reporter{
		opts:        opts,
		formEnabled: true,
	}
}

// SetRemaining prints the usage counter.
func (r *Reporter) SetRemaining(remaining int, low bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remaining = remaining
	r.low = low
	if remaining <= 0 {
		return
	}
	r.limitShown = false

	if low {
		r.printf("[mapleads] Free searches remaining: %d (last one!)\n", remaining)
		return
	}
	r.printf("[mapleads] Free searches remaining: %d\n", remaining)
}

// ShowLimitReached prints the usage limit banner once.
func (r *Reporter) ShowLimitReached() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formEnabled = false
	if r.limitShown {
		return
	}
	r.limitShown = true
	r.printf("[mapleads] Usage limit reached: you have used all your free searches.\n")
}

// ShowResultsWarning prints the clamp warning.
func (r *Reporter) ShowResultsWarning(max int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.warning = true
	r.printf("[mapleads] Warning: maximum %d results allowed, using %d\n", max, max)
}

// HideResultsWarning clears the warning flag. Printed lines stay printed.
func (r *Reporter) HideResultsWarning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warning = false
}

// SetFormEnabled records whether input is accepted.
func (r *Reporter) SetFormEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formEnabled = enabled
}

// ShowLoading prints message and, if enabled, starts the spinner.
func (r *Reporter) ShowLoading(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopSpinnerLocked()
	r.loading = true
	r.loadingSince = time.Now()

	if r.opts.WebhookURL != "" {
		r.printf("[mapleads] Sending request to %s\n", r.opts.WebhookURL)
	}
	if !r.opts.Spinner {
		r.printf("[mapleads] %s\n", message)
		return
	}

	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.updateLoop(message, r.stopCh, r.doneCh)
}

// ShowDownload prints where the leads went.
func (r *Reporter) ShowDownload(d form.Download) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := r.stopSpinnerLocked()

	if d.URL != "" {
		r.printf("[mapleads] Your leads are ready: %s\n", d.URL)
		r.printf("[mapleads] Save as: %s\n", d.Filename)
	} else {
		r.printf("[mapleads] Your leads are ready: %s (%s)\n", d.Filename, formatBytes(d.Size))
		r.printf("[mapleads] Saved to: %s\n", d.Location)
	}
	if elapsed > 0 {
		r.printf("[mapleads] Total time: %s\n", formatDuration(elapsed))
	}
	r.printf("[mapleads] Need more searches? Get in touch for unlimited access.\n")
}

// ShowError prints the error banner.
func (r *Reporter) ShowError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopSpinnerLocked()
	r.printf("[mapleads] %s\n", message)
}

// HideAll stops the loading indicator.
func (r *Reporter) HideAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopSpinnerLocked()
}

// Stop stops the reporter. Safe to call more than once.
func (r *Reporter) Stop() {
	r.HideAll()
}

// FormEnabled reports whether the last SetFormEnabled/ShowLimitReached left
// the form accepting input.
func (r *Reporter) FormEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.formEnabled
}

// Remaining returns the last counter value and whether it was highlighted.
func (r *Reporter) Remaining() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.low
}

// WarningVisible reports whether the clamp warning is showing.
func (r *Reporter) WarningVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warning
}

// stopSpinnerLocked ends the loading state and returns how long it lasted.
// Must be called with r.mu held.
func (r *Reporter) stopSpinnerLocked() time.Duration {
	if !r.loading {
		return 0
	}
	r.loading = false

	if r.stopCh != nil {
		close(r.stopCh)
		// The loop never takes r.mu, so waiting here cannot deadlock.
		<-r.doneCh
		r.stopCh = nil
		r.doneCh = nil
		fmt.Fprint(r.opts.Output, "\r\033[K")
	}
	return time.Since(r.loadingSince)
}

// updateLoop periodically redraws the spinner.
func (r *Reporter) updateLoop(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	frame := 0
	start := time.Now()
	for {
		fmt.Fprintf(r.opts.Output, "\r[mapleads] %s %s %s    ",
			message,
			spinnerFrames[frame%len(spinnerFrames)],
			formatDuration(time.Since(start)),
		)
		frame++

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.opts.Output, format, args...)
}

// byteUnits are binary multiples, largest first.
var byteUnits = []struct {
	suffix string
	size   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	for _, u := range byteUnits {
		if b >= u.size {
			return fmt.Sprintf("%.2f %s", float64(b)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}

// ParseBytes parses a human-readable byte string such as "64MB" or "512 KB".
func ParseBytes(s string) (int64, error) {
	num := strings.TrimSpace(s)
	var multiplier int64 = 1
	for _, u := range byteUnits {
		if rest, ok := strings.CutSuffix(num, u.suffix); ok {
			num, multiplier = strings.TrimSpace(rest), u.size
			break
		}
	}
	if multiplier == 1 {
		num = strings.TrimSpace(strings.TrimSuffix(num, "B"))
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}
	return int64(value * float64(multiplier)), nil
}
