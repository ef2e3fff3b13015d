package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGovernorConcurrencyCap(t *testing.T) {
	t.Parallel()

	const cap = 3
	g := New(cap, WithBaseDelay(0), WithAdaptive(false))

	var current, peak int64
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			permit, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("unexpected acquire error: %v", err)
				return
			}

			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&current, -1)

			g.Release(permit, time.Millisecond, false)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > cap {
		t.Errorf("observed %d concurrent permits, cap is %d", got, cap)
	}
	if g.InFlight() != 0 {
		t.Errorf("expected 0 permits in flight after release, got %d", g.InFlight())
	}
}

func TestGovernorAcquireRespectsCancellation(t *testing.T) {
	t.Parallel()

	g := New(1, WithBaseDelay(0), WithAdaptive(false))

	// Occupy the only slot.
	permit, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer g.Release(permit, 0, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := g.Acquire(ctx); err == nil {
		t.Error("expected acquire to fail when cancelled at capacity")
	}
}

func TestGovernorAdaptiveDelay(t *testing.T) {
	t.Parallel()

	t.Run("starts at floor", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithBounds(time.Second, 10*time.Second))
		if g.Delay() != time.Second {
			t.Errorf("expected starting delay 1s, got %v", g.Delay())
		}
	})

	t.Run("slow responses widen the delay", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithBounds(100*time.Millisecond, 10*time.Second))
		before := g.Delay()

		for range 5 {
			g.observe(5*time.Second, false)
		}

		if g.Delay() <= before {
			t.Errorf("expected delay to grow from %v, got %v", before, g.Delay())
		}
	})

	t.Run("delay never exceeds the ceiling", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithBounds(100*time.Millisecond, time.Second))
		for range 20 {
			g.observe(time.Minute, false)
		}
		if g.Delay() > time.Second {
			t.Errorf("expected delay clamped to 1s, got %v", g.Delay())
		}
	})

	t.Run("fast responses decay toward the floor", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithBounds(100*time.Millisecond, 10*time.Second))

		// Widen first, then observe fast, healthy responses.
		for range 5 {
			g.observe(5*time.Second, false)
		}
		widened := g.Delay()
		for range 50 {
			g.observe(time.Millisecond, false)
		}

		if g.Delay() >= widened {
			t.Errorf("expected delay to decay below %v, got %v", widened, g.Delay())
		}
		if g.Delay() < 100*time.Millisecond {
			t.Errorf("expected delay to stay at or above the floor, got %v", g.Delay())
		}
	})

	t.Run("errors never narrow the delay", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithBounds(100*time.Millisecond, 10*time.Second))
		for range 5 {
			g.observe(5*time.Second, false)
		}
		widened := g.Delay()

		// Fast but erroring: the delay must not shrink.
		g.observe(time.Millisecond, true)

		if g.Delay() < widened {
			t.Errorf("expected delay to hold at %v on error, got %v", widened, g.Delay())
		}
	})

	t.Run("disabled adaptive throttling uses base delay", func(t *testing.T) {
		t.Parallel()

		g := New(1, WithAdaptive(false), WithBaseDelay(250*time.Millisecond))
		g.observe(time.Minute, false)
		if g.Delay() != 250*time.Millisecond {
			t.Errorf("expected base delay 250ms, got %v", g.Delay())
		}
	})
}

func TestGovernorPacingJitterBounds(t *testing.T) {
	t.Parallel()

	g := New(1, WithAdaptive(false), WithBaseDelay(100*time.Millisecond))

	// delay * (1 + r), r in [0,1): always within [delay, 2*delay).
	for range 100 {
		d := g.pacingDelay()
		if d < 100*time.Millisecond || d >= 200*time.Millisecond {
			t.Fatalf("pacing delay %v outside [100ms, 200ms)", d)
		}
	}
}
