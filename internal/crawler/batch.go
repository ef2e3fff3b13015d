package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// Job is one keyword crawl within a batch.
type Job struct {
	// Keyword is the search keyword.
	Keyword string

	// SeedURL is the search URL seeding the crawl.
	SeedURL string
}

// RunFunc crawls one job and returns its session. The returned error is
// recorded per session (a keyword that found nothing should not abort
// its siblings), so implementations typically wrap Engine.Run.
type RunFunc func(ctx context.Context, job Job) (*model.CrawlSession, error)

// BatchRunner crawls multiple keywords concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We run one Engine per keyword (created inside the
// RunFunc) rather than sharing one because:
// 1. Frontier and session state stay single-owner per keyword
// 2. Record counting per session needs an unshared pipeline
// 3. It allows per-keyword customization if needed
type BatchRunner struct {
	// run crawls a single job.
	run RunFunc

	// concurrency is the maximum number of keywords crawled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed sessions in job order.
	// Access is synchronized via mutex.
	results []*model.CrawlSession
	mu      sync.Mutex
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of concurrent keyword
// crawls. Default is 2 if not specified.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner executing jobs with run.
func NewBatchRunner(run RunFunc, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		run:         run,
		concurrency: 2,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Run crawls all jobs concurrently, respecting the concurrency limit and
// context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each keyword gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Sessions are returned in job order, including sessions for keywords
// that failed. The error return indicates batch-level problems
// (cancellation), not per-keyword outcomes.
func (b *BatchRunner) Run(ctx context.Context, jobs []Job) ([]*model.CrawlSession, error) {
	b.logger.Info("starting batch crawl",
		"total_keywords", len(jobs),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	b.results = make([]*model.CrawlSession, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			b.logger.Info("crawling keyword",
				"keyword", job.Keyword,
				"index", i+1,
				"total", len(jobs),
			)

			session, err := b.run(ctx, job)

			// Store result regardless of error; the session carries the
			// failure information.
			b.mu.Lock()
			b.results[i] = session
			b.mu.Unlock()

			if err != nil {
				b.logger.Warn("keyword crawl failed",
					"keyword", job.Keyword,
					"error", err,
				)
				// Don't return the error to errgroup - sibling keywords
				// should keep crawling.
				return nil
			}

			b.logger.Info("keyword crawl completed",
				"keyword", job.Keyword,
				"records", session.RecordsEmitted,
			)

			return nil
		})
	}

	err := g.Wait()

	b.logger.Info("batch crawl complete",
		"total_keywords", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return b.results, err
}
