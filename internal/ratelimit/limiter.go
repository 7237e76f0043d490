// Package ratelimit bounds failed password attempts per key within a sliding
// window.
//
// The limiter counts failures, not requests: callers Reserve an attempt before
// they compare a secret and release it with the outcome, so only mismatches
// are recorded. Attempts still in flight hold a slot, which keeps concurrent
// guesses for one key within the limit. A key stays locked out until enough
// of its failures age past the window. Allow and RecordFailure are the two
// halves of Reserve for callers that already serialize attempts per key.
//
// State lives in process memory only. It is not shared across replicas and
// does not survive a restart.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is how long a failure counts against its key.
	DefaultWindow = time.Hour

	// DefaultMaxFailures is the number of failures within the window after
	// which Reserve stops admitting attempts.
	DefaultMaxFailures = 5
)

// Option configures a Limiter.
type Option func(*options)

type options struct {
	window time.Duration
	max    int
	now    func() time.Time
}

// WithWindow sets the sliding window length.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithMaxFailures sets how many failures a key may accumulate in the window.
func WithMaxFailures(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.max = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Limiter tracks failure instants per key. It is safe for concurrent use.
// Every operation runs under a single mutex and does no I/O while holding it,
// so updates for the same key are never lost.
type Limiter[K comparable] struct {
	mu       sync.Mutex
	failures map[K][]time.Time
	pending  map[K]int

	window time.Duration
	max    int
	now    func() time.Time
}

// New returns a Limiter with the default one hour window and five failures,
// adjusted by opts.
func New[K comparable](opts ...Option) *Limiter[K] {
	o := options{
		window: DefaultWindow,
		max:    DefaultMaxFailures,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Limiter[K]{
		failures: make(map[K][]time.Time),
		pending:  make(map[K]int),
		window:   o.window,
		max:      o.max,
		now:      o.now,
	}
}

// Allow drops failures older than the window for key and reports whether the
// remaining count, plus attempts reserved and not yet released, is below the
// limit. It only reports; use Reserve to claim an attempt.
func (l *Limiter[K]) Allow(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.prune(key, l.now()))+l.pending[key] < l.max
}

// Reserve admits one attempt for key when the failures in the window plus
// the attempts already in flight are below the limit. An admitted attempt
// holds its slot until release is called with its outcome; a failed attempt
// is then recorded as a failure. release is safe to call more than once,
// only the first call counts. When ok is false release is a no-op.
func (l *Limiter[K]) Reserve(key K) (release func(failed bool), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.prune(key, l.now()))+l.pending[key] >= l.max {
		return func(bool) {}, false
	}
	l.pending[key]++

	var once sync.Once
	return func(failed bool) {
		once.Do(func() { l.release(key, failed) })
	}, true
}

// release records the failure before it frees the slot, so a concurrent
// Reserve sees at worst one attempt too many and never one too few.
func (l *Limiter[K]) release(key K, failed bool) {
	if failed {
		l.RecordFailure(key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.pending[key] - 1; n > 0 {
		l.pending[key] = n
	} else {
		delete(l.pending, key)
	}
}

// RecordFailure adds a failure for key at the current instant.
func (l *Limiter[K]) RecordFailure(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures[key] = append(l.failures[key], l.now())
}

// failureCount returns how many failures for key are still inside the window.
func (l *Limiter[K]) failureCount(key K) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.prune(key, l.now()))
}

// Sweep forgets every key whose failures have all aged out and returns how
// many keys were removed. It does not change what Allow reports.
func (l *Limiter[K]) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key := range l.failures {
		if len(l.prune(key, now)) == 0 {
			removed++
		}
	}
	return removed
}

// Len returns the number of keys with failures currently tracked.
func (l *Limiter[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.failures)
}

// prune must be called with mu held. Failures are appended in clock order,
// so the expired ones form a prefix.
func (l *Limiter[K]) prune(key K, now time.Time) []time.Time {
	ts, ok := l.failures[key]
	if !ok {
		return nil
	}

	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == len(ts) {
		delete(l.failures, key)
		return nil
	}
	if i > 0 {
		ts = append(ts[:0], ts[i:]...)
		l.failures[key] = ts
	}
	return ts
}
