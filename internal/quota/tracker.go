package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ligustah/mapleads/internal/logger"
)

// Defaults for NewTracker.
const (
	DefaultKey     = "remainingRuns"
	DefaultMaxRuns = 3
)

// ErrNotLoaded is returned by mutations attempted before Load succeeded.
var ErrNotLoaded = errors.New("quota: counter not loaded")

// Store persists string values under string keys.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// Options configures a Tracker.
type Options struct {
	Key     string
	MaxRuns int
	Logger  *zap.Logger
}

// Option is a functional option for configuring a Tracker.
type Option func(*Options)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(o *Options) {
		o.Key = key
	}
}

// WithMaxRuns sets the upper bound of the counter and the value used when
// nothing is stored yet.
func WithMaxRuns(n int) Option {
	return func(o *Options) {
		o.MaxRuns = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Tracker is the remaining-runs counter. The in-memory value is always
// within [0, MaxRuns].
type Tracker struct {
	store Store
	opts  Options
	log   *zap.Logger

	mu        sync.Mutex
	remaining int
	loaded    bool
}

// NewTracker creates a tracker backed by store. Call Load before mutating.
func NewTracker(store Store, options ...Option) *Tracker {
	opts := Options{
		Key:     DefaultKey,
		MaxRuns: DefaultMaxRuns,
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.MaxRuns < 0 {
		opts.MaxRuns = 0
	}
	log := logger.OrNop(opts.Logger)

	return &Tracker{
		store:     store,
		opts:      opts,
		log:       log.With(zap.String("quota_key", opts.Key)),
		remaining: opts.MaxRuns,
	}
}

// MaxRuns returns the configured upper bound.
func (t *Tracker) MaxRuns() int {
	return t.opts.MaxRuns
}

// Load reads the counter from the store. A missing or unparseable value
// yields MaxRuns; stored values outside [0, MaxRuns] are clamped.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	raw, ok, err := t.store.Get(ctx, t.opts.Key)
	if err != nil {
		return 0, fmt.Errorf("quota: load: %w", err)
	}

	value := t.opts.MaxRuns
	if ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			t.log.Warn("ignoring unparseable quota value", zap.String("value", raw))
		} else {
			value = t.clamp(n)
		}
	}

	t.mu.Lock()
	t.remaining = value
	t.loaded = true
	t.mu.Unlock()

	t.log.Debug("quota loaded", zap.Int("remaining", value), zap.Bool("stored", ok))
	return value, nil
}

// Consume decrements the counter if it is positive and persists the new
// value. It reports false, without writing, when no runs are left.
func (t *Tracker) Consume(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		return false, ErrNotLoaded
	}
	if t.remaining <= 0 {
		return false, nil
	}

	if err := t.persist(ctx, t.remaining-1); err != nil {
		return false, err
	}
	t.remaining--
	t.log.Debug("quota consumed", zap.Int("remaining", t.remaining))
	return true, nil
}

// Restore gives one run back, never exceeding MaxRuns, and persists it.
func (t *Tracker) Restore(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		return ErrNotLoaded
	}

	next := t.clamp(t.remaining + 1)
	if err := t.persist(ctx, next); err != nil {
		return err
	}
	t.remaining = next
	t.log.Debug("quota restored", zap.Int("remaining", t.remaining))
	return nil
}

// Reset sets the counter back to MaxRuns.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.persist(ctx, t.opts.MaxRuns); err != nil {
		return err
	}
	t.remaining = t.opts.MaxRuns
	t.loaded = true
	return nil
}

// Remaining returns the last known counter value.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// IsExhausted reports whether no runs are left.
func (t *Tracker) IsExhausted() bool {
	return t.Remaining() <= 0
}

// persist writes value. Must be called with t.mu held.
func (t *Tracker) persist(ctx context.Context, value int) error {
	if err := t.store.Set(ctx, t.opts.Key, strconv.Itoa(value)); err != nil {
		return fmt.Errorf("quota: save: %w", err)
	}
	return nil
}

func (t *Tracker) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > t.opts.MaxRuns {
		return t.opts.MaxRuns
	}
	return n
}
