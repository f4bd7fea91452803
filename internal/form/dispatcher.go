package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ligustah/mapleads/internal/export"
	"github.com/ligustah/mapleads/internal/logger"
	"github.com/ligustah/mapleads/internal/metrics"
	"github.com/ligustah/mapleads/internal/result"
	"github.com/ligustah/mapleads/internal/webhook"
)

// refundTimeout bounds the quota write after a failed submission.
const refundTimeout = 5 * time.Second

// Quota is the remaining-runs counter used by the dispatcher.
type Quota interface {
	Load(ctx context.Context) (int, error)
	Consume(ctx context.Context) (bool, error)
	Restore(ctx context.Context) error
	Remaining() int
	IsExhausted() bool
}

// Poster sends lead requests and follows download URLs.
type Poster interface {
	Submit(ctx context.Context, req webhook.LeadRequest) (*webhook.Response, error)
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// Saver stores a finished file.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) (*export.Object, error)
}

// Timer is the handle returned by Options.AfterFunc.
type Timer interface {
	Stop() bool
}

// Options configures a Dispatcher.
type Options struct {
	// MaxResults caps the requested number of results. Default: 50
	MaxResults int

	// FilenamePrefix is used when the webhook does not name the file.
	// Default: "google-maps-leads"
	FilenamePrefix string

	// WarningDuration is how long the clamp warning stays visible.
	// Default: 3s
	WarningDuration time.Duration

	// FetchDownloadURL makes the dispatcher download files the webhook only
	// links to, instead of handing the link to the view.
	FetchDownloadURL bool

	// Now returns the current time. Default: time.Now
	Now func() time.Time

	// AfterFunc schedules f after d. Default: time.AfterFunc
	AfterFunc func(d time.Duration, f func()) Timer

	// OnTransition is called after every state change.
	OnTransition func(from, to State)

	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Input is the raw form content of one submission.
type Input struct {
	SearchQuery     string
	Location        string
	NumberOfResults int
}

// Event is something the dispatcher reacts to.
type Event interface {
	isEvent()
}

// InitEvent loads the quota and renders the counter.
type InitEvent struct{}

// ResultsChangedEvent is raised when the result count input changes.
type ResultsChangedEvent struct {
	Value int
}

// SubmitEvent submits the form.
type SubmitEvent struct {
	Input Input
}

func (InitEvent) isEvent()           {}
func (ResultsChangedEvent) isEvent() {}
func (SubmitEvent) isEvent()         {}

// Dispatcher holds the application state and applies events to it.
type Dispatcher struct {
	quota  Quota
	poster Poster
	saver  Saver
	view   View
	opts   Options
	log    *zap.Logger

	inflight sync.Mutex

	mu        sync.Mutex
	state     State
	warnTimer Timer
}

// NewDispatcher wires a dispatcher. view may be nil.
func NewDispatcher(q Quota, p Poster, s Saver, v View, opts Options) *Dispatcher {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	if opts.FilenamePrefix == "" {
		opts.FilenamePrefix = "google-maps-leads"
	}
	if opts.WarningDuration <= 0 {
		opts.WarningDuration = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}
	if v == nil {
		v = NopView{}
	}
	log := logger.OrNop(opts.Logger)

	return &Dispatcher{
		quota:  q,
		poster: p,
		saver:  s,
		view:   v,
		opts:   opts,
		log:    log,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dispatch applies ev.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case InitEvent:
		return d.Init(ctx)
	case ResultsChangedEvent:
		d.ChangeResults(e.Value)
		return nil
	case SubmitEvent:
		_, err := d.Submit(ctx, e.Input)
		return err
	default:
		return fmt.Errorf("form: unknown event %T", ev)
	}
}

// Init loads the quota and renders the counter, or the limit banner when
// nothing is left.
func (d *Dispatcher) Init(ctx context.Context) error {
	if _, err := d.quota.Load(ctx); err != nil {
		return &StorageError{Op: "load quota", Err: err}
	}
	d.refreshCounter()
	return nil
}

// ChangeResults clamps n to MaxResults. A clamp shows the results warning
// for WarningDuration; an in-range value hides it.
func (d *Dispatcher) ChangeResults(n int) int {
	if n > d.opts.MaxResults {
		d.view.ShowResultsWarning(d.opts.MaxResults)
		d.scheduleWarningHide()
		d.opts.Metrics.ResultsClamped()
		d.log.Debug("results clamped", zap.Int("requested", n), zap.Int("max", d.opts.MaxResults))
		return d.opts.MaxResults
	}

	d.mu.Lock()
	if d.warnTimer != nil {
		d.warnTimer.Stop()
		d.warnTimer = nil
	}
	d.mu.Unlock()
	d.view.HideResultsWarning()
	return n
}

// Submit runs one full submission. On success the returned Download says
// where the file went.
func (d *Dispatcher) Submit(ctx context.Context, in Input) (*Download, error) {
	if !d.inflight.TryLock() {
		d.opts.Metrics.Submission(metrics.OutcomeBusy)
		return nil, ErrBusy
	}
	defer d.inflight.Unlock()

	d.transition(StateValidating)

	if d.quota.IsExhausted() {
		return nil, d.exhausted()
	}

	in.NumberOfResults = d.ChangeResults(in.NumberOfResults)
	if err := validate(in); err != nil {
		d.view.ShowError(ErrorBanner(MsgRequiredFields))
		return nil, d.fail(err, metrics.OutcomeValidation)
	}

	req := webhook.LeadRequest{
		SearchQuery:     strings.TrimSpace(in.SearchQuery),
		Location:        strings.TrimSpace(in.Location),
		NumberOfResults: in.NumberOfResults,
	}

	d.view.HideAll()
	d.view.SetFormEnabled(false)
	defer func() {
		if !d.quota.IsExhausted() {
			d.view.SetFormEnabled(true)
		}
	}()
	d.view.ShowLoading(MsgProcessing)
	d.transition(StateSubmitting)

	ok, err := d.quota.Consume(ctx)
	if err != nil {
		d.view.ShowError(ErrorBanner(MsgFailed))
		return nil, d.fail(&StorageError{Op: "consume quota", Err: err}, metrics.OutcomeStorage)
	}
	if !ok {
		return nil, d.exhausted()
	}
	d.refreshCounter()

	log := d.log.With(
		zap.String("search_query", req.SearchQuery),
		zap.String("location", req.Location),
		zap.Int("number_of_results", req.NumberOfResults),
	)
	log.Info("submitting lead request", zap.Int("remaining_runs", d.quota.Remaining()))

	dl, outcome, err := d.send(ctx, req)
	if err != nil {
		log.Warn("submission failed", zap.Error(err))
		d.view.ShowError(ErrorBanner(Message(err)))
		d.refund(ctx)
		return nil, d.fail(err, outcome)
	}

	d.transition(StateSuccess)
	d.view.HideAll()
	d.view.ShowDownload(*dl)
	d.opts.Metrics.Submission(metrics.OutcomeSuccess)
	log.Info("submission complete", zap.String("filename", dl.Filename))
	d.transition(StateIdle)

	return dl, nil
}

// send performs the request and turns the response into a Download.
func (d *Dispatcher) send(ctx context.Context, req webhook.LeadRequest) (*Download, string, error) {
	start := time.Now()
	resp, err := d.poster.Submit(ctx, req)
	d.opts.Metrics.ObserveRequest(time.Since(start))
	if err != nil {
		return nil, metrics.OutcomeTransport, &TransportError{Err: err}
	}

	fallback := result.DefaultFilename(d.opts.FilenamePrefix, d.opts.Now())
	payload, err := result.Parse(resp.ContentType, resp.ContentDisposition, resp.Body, fallback)
	if err != nil {
		return nil, metrics.OutcomeFormat, &FormatError{Err: err}
	}

	switch payload.Kind {
	case result.KindCSV:
		return d.save(ctx, payload.Filename, bytes.NewReader(payload.CSV))
	case result.KindURL:
		if !d.opts.FetchDownloadURL {
			return &Download{Filename: payload.Filename, URL: payload.URL}, "", nil
		}
		body, err := d.poster.Get(ctx, payload.URL)
		if err != nil {
			return nil, metrics.OutcomeTransport, &TransportError{Err: err}
		}
		defer body.Close()
		return d.save(ctx, payload.Filename, body)
	default:
		return nil, metrics.OutcomeFormat, &FormatError{Err: result.ErrUnexpectedFormat}
	}
}

func (d *Dispatcher) save(ctx context.Context, name string, r io.Reader) (*Download, string, error) {
	obj, err := d.saver.Save(ctx, name, r)
	if err != nil {
		return nil, metrics.OutcomeStorage, &StorageError{Op: "save file", Err: err}
	}
	return &Download{Filename: obj.Key, Location: obj.Location, Size: obj.Size}, "", nil
}

// refund gives back the run consumed by a failed submission. The write
// outlives cancellation of ctx, bounded by refundTimeout.
func (d *Dispatcher) refund(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	if err := d.quota.Restore(ctx); err != nil {
		d.log.Error("could not restore quota", zap.Error(err))
	}
	d.refreshCounter()
}

func (d *Dispatcher) exhausted() error {
	d.view.ShowError(ErrorBanner(MsgLimitReached))
	d.view.ShowLimitReached()
	return d.fail(ErrQuotaExhausted, metrics.OutcomeExhausted)
}

// fail moves through Error back to Idle and returns err.
func (d *Dispatcher) fail(err error, outcome string) error {
	d.transition(StateError)
	d.opts.Metrics.Submission(outcome)
	d.transition(StateIdle)
	return err
}

func (d *Dispatcher) refreshCounter() {
	remaining := d.quota.Remaining()
	d.view.SetRemaining(remaining, remaining == 1)
	d.opts.Metrics.SetRemaining(remaining)
	if remaining <= 0 {
		d.view.ShowLimitReached()
	}
}

func (d *Dispatcher) scheduleWarningHide() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.warnTimer != nil {
		d.warnTimer.Stop()
	}
	d.warnTimer = d.opts.AfterFunc(d.opts.WarningDuration, d.view.HideResultsWarning)
}

func (d *Dispatcher) transition(to State) {
	d.mu.Lock()
	from := d.state
	d.state = to
	d.mu.Unlock()

	if !canTransition(from, to) {
		d.log.Error("invalid state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	d.log.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	if d.opts.OnTransition != nil {
		d.opts.OnTransition(from, to)
	}
}

func validate(in Input) error {
	var missing []string
	if strings.TrimSpace(in.SearchQuery) == "" {
		missing = append(missing, "searchQuery")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if in.NumberOfResults < 1 {
		missing = append(missing, "numberOfResults")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Message returns the user-facing reason for a submission error.
func Message(err error) string {
	var (
		ve *ValidationError
		te *TransportError
		fe *FormatError
	)
	switch {
	case errors.Is(err, ErrQuotaExhausted):
		return MsgLimitReached
	case errors.As(err, &ve):
		return MsgRequiredFields
	case errors.As(err, &te):
		var status *webhook.StatusError
		if errors.As(te.Err, &status) {
			return status.Error()
		}
		if msg := te.Err.Error(); msg != "" {
			return msg
		}
		return MsgFailed
	case errors.As(err, &fe):
		if errors.Is(fe.Err, result.ErrUnreadable) {
			return MsgUnreadable
		}
		return MsgUnexpected
	default:
		return MsgFailed
	}
}
