package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Default pacing values. These follow common polite-crawling practice:
// a small randomized delay per dispatch, widened automatically when the
// server slows down or starts erroring.
const (
	// DefaultMaxConcurrency is the default number of simultaneous
	// in-flight fetches.
	DefaultMaxConcurrency = 8

	// DefaultBaseDelay is the pacing delay applied per dispatch when
	// adaptive throttling is disabled.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultFloor is the starting (and minimum) adaptive delay.
	DefaultFloor = 1 * time.Second

	// DefaultCeiling is the maximum adaptive delay. Pacing never grows
	// past this no matter how slow the server gets.
	DefaultCeiling = 10 * time.Second
)

// Governor bounds concurrent fetches and paces dispatches.
//
// Pacing is advisory, not a correctness requirement: its goal is to avoid
// triggering upstream defensive blocking. The concurrency cap, by
// contrast, is hard — at no instant are more than maxConcurrency permits
// outstanding.
//
// Design decision: We use a buffered channel as the permit semaphore
// because it gives us context-aware blocking acquisition for free and
// len(channel) doubles as the in-flight gauge.
type Governor struct {
	// permits is the semaphore; a send acquires a slot, a receive
	// releases it.
	permits chan struct{}

	// mu guards the adaptive delay state below.
	mu sync.Mutex

	// delay is the current adaptive delay, kept within [floor, ceiling].
	delay time.Duration

	// smoothed is the exponentially smoothed observed latency.
	smoothed time.Duration

	// base is the pacing delay used when adaptive throttling is off.
	base time.Duration

	// floor and ceiling bound the adaptive delay.
	floor, ceiling time.Duration

	// adaptive toggles latency-based delay adjustment.
	adaptive bool

	// rng produces pacing jitter.
	rng *rand.Rand
}

// Permit is a concurrency slot issued by Acquire. It must be returned
// with Release exactly once.
type Permit struct {
	issuedAt time.Time
}

// Option configures a Governor.
type Option func(*Governor)

// WithBaseDelay sets the non-adaptive pacing delay.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Governor) {
		g.base = d
	}
}

// WithAdaptive toggles adaptive throttling.
func WithAdaptive(enabled bool) Option {
	return func(g *Governor) {
		g.adaptive = enabled
	}
}

// WithBounds sets the adaptive delay floor (also the starting delay)
// and ceiling.
func WithBounds(floor, ceiling time.Duration) Option {
	return func(g *Governor) {
		g.floor = floor
		g.ceiling = ceiling
	}
}

// New creates a Governor with the given concurrency cap.
// A non-positive cap falls back to DefaultMaxConcurrency.
func New(maxConcurrency int, opts ...Option) *Governor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	g := &Governor{
		permits:  make(chan struct{}, maxConcurrency),
		base:     DefaultBaseDelay,
		floor:    DefaultFloor,
		ceiling:  DefaultCeiling,
		adaptive: true,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // Jitter is not security-sensitive
	}

	for _, opt := range opts {
		opt(g)
	}

	// The adaptive delay starts at the floor (the "start delay") and
	// moves from there based on observed latency.
	g.delay = g.floor

	return g
}

// Acquire blocks until a concurrency slot is free, then applies the
// jittered pacing delay. It returns early with the context error if the
// context is cancelled while waiting; in that case no permit is held.
func (g *Governor) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if d := g.pacingDelay(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			<-g.permits
			return nil, ctx.Err()
		}
	}

	return &Permit{issuedAt: time.Now()}, nil
}

// Release returns the permit and feeds the observed fetch latency and
// error signal into the adaptive delay.
func (g *Governor) Release(p *Permit, latency time.Duration, wasError bool) {
	if p == nil {
		return
	}
	<-g.permits
	g.observe(latency, wasError)
}

// InFlight returns the number of permits currently outstanding.
func (g *Governor) InFlight() int {
	return len(g.permits)
}

// Delay returns the current effective pacing delay before jitter.
func (g *Governor) Delay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.adaptive {
		return g.delay
	}
	return g.base
}

// pacingDelay returns the jittered delay for one dispatch:
// effective_delay * (1 + r) with r uniform in [0, 1).
func (g *Governor) pacingDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	effective := g.base
	if g.adaptive {
		effective = g.delay
	}
	if effective <= 0 {
		return 0
	}
	return effective + time.Duration(float64(effective)*g.rng.Float64())
}

// observe updates the adaptive delay from one completed fetch.
//
// The rule follows the usual autothrottle shape: the delay moves halfway
// toward the smoothed latency, never decreases on an error response, and
// stays clamped to [floor, ceiling].
func (g *Governor) observe(latency time.Duration, wasError bool) {
	if !g.adaptive {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.smoothed == 0 {
		g.smoothed = latency
	} else {
		g.smoothed = (g.smoothed + latency) / 2
	}

	next := (g.delay + g.smoothed) / 2
	if wasError && next < g.delay {
		next = g.delay
	}

	if next < g.floor {
		next = g.floor
	}
	if next > g.ceiling {
		next = g.ceiling
	}
	g.delay = next
}
