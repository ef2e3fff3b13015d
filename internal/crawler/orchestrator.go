package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuki-osaki/marketscan/internal/model"
	"github.com/yuki-osaki/marketscan/internal/parse"
	"github.com/yuki-osaki/marketscan/internal/retry"
	"github.com/yuki-osaki/marketscan/internal/sink"
	"github.com/yuki-osaki/marketscan/internal/throttle"
)

// ErrNoRecords is returned by Run when a completed session emitted no
// records. A crawl that found nothing means the seed was wrong, the site
// blocked us, or the extractor no longer matches the markup, and the
// caller should exit non-zero.
var ErrNoRecords = errors.New("no records extracted")

// DefaultMaxPages caps search-result pages handled per session.
const DefaultMaxPages = 50

// Fetcher retrieves one page. Implemented by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, referer string) (*model.FetchedPage, error)
}

// ResponseCache serves and stores fetched pages. Implemented by
// cache.Store; nil disables caching.
type ResponseCache interface {
	Get(ctx context.Context, rawURL string) (*model.FetchedPage, bool, error)
	Put(ctx context.Context, rawURL string, page *model.FetchedPage) error
}

// Engine runs one keyword crawl end to end.
//
// Design decision: One control goroutine owns the frontier, the session
// counters, and all completion handling; worker goroutines do nothing but
// sleep, fetch, and report. This is more code than a sync.WaitGroup over
// a URL list, but it gives us ordered dispatch (products before the next
// search page), head-of-queue retries, and a provable termination
// condition without any shared-state locking.
type Engine struct {
	// fetcher performs the actual HTTP work.
	fetcher Fetcher

	// extractor is the page-type and link/record extraction boundary.
	extractor parse.Extractor

	// pipeline receives extracted records.
	pipeline *sink.Pipeline

	// governor bounds concurrency and paces dispatches.
	governor *throttle.Governor

	// cache is the response cache; nil disables caching.
	cache ResponseCache

	// policy decides retries for failed fetches.
	policy *retry.Policy

	// logger is used for structured logging during the crawl.
	logger *slog.Logger

	// maxConcurrency caps dispatched-but-unfinished requests. It should
	// match the governor's permit count; a larger value only parks
	// workers inside Acquire.
	maxConcurrency int

	// maxPages caps handled search-result pages per session.
	maxPages int

	// maxItems caps emitted records per session. Zero means unlimited.
	maxItems int

	// onProgress, when set, is called from the control goroutine after
	// every handled completion.
	onProgress func(*model.CrawlSession)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithGovernor sets the throttle governor.
func WithGovernor(g *throttle.Governor) EngineOption {
	return func(e *Engine) {
		e.governor = g
	}
}

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(c ResponseCache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p *retry.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConcurrency caps in-flight requests.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithBudgets sets the per-session page and item budgets.
// maxItems 0 means unlimited items.
func WithBudgets(maxPages, maxItems int) EngineOption {
	return func(e *Engine) {
		if maxPages > 0 {
			e.maxPages = maxPages
		}
		if maxItems >= 0 {
			e.maxItems = maxItems
		}
	}
}

// WithProgress sets a callback invoked after every handled completion.
func WithProgress(fn func(*model.CrawlSession)) EngineOption {
	return func(e *Engine) {
		e.onProgress = fn
	}
}

// New creates an Engine crawling through fetcher, extracting with
// extractor, and delivering records to pipeline.
func New(fetcher Fetcher, extractor parse.Extractor, pipeline *sink.Pipeline, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:        fetcher,
		extractor:      extractor,
		pipeline:       pipeline,
		maxConcurrency: throttle.DefaultMaxConcurrency,
		maxPages:       DefaultMaxPages,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.governor == nil {
		e.governor = throttle.New(e.maxConcurrency)
	}
	if e.policy == nil {
		e.policy = retry.NewDefault()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// fetchResult is one completed fetch reported to the control loop.
type fetchResult struct {
	req     Request
	page    *model.FetchedPage
	latency time.Duration
	err     error
}

// runState is the mutable state of one crawl, owned by the control
// goroutine.
type runState struct {
	session   *model.CrawlSession
	frontier  *Frontier
	cancelled bool
	budgetHit bool
}

// Run crawls one keyword starting from seedURL until the frontier drains,
// a budget is hit, or ctx is cancelled. In-flight fetches are drained
// before Run returns, so the returned session is final.
//
// Run returns ErrNoRecords when the session completed without emitting a
// single record.
func (e *Engine) Run(ctx context.Context, keyword, seedURL string) (*model.CrawlSession, error) {
	st := &runState{
		session:  model.NewCrawlSession(keyword, seedURL),
		frontier: NewFrontier(),
	}
	st.frontier.Push(Request{URL: seedURL, Kind: model.KindSearchResults})

	e.logger.Info("crawl started",
		"keyword", keyword,
		"seed", seedURL,
		"session", st.session.ID,
	)

	results := make(chan fetchResult)
	inFlight := 0

	for {
		// Dispatch while slots are free and work remains.
		for !st.cancelled && inFlight < e.maxConcurrency && st.frontier.Len() > 0 {
			req, _ := st.frontier.Pop()
			if e.overBudget(st, req) {
				continue
			}

			if page, ok := e.cacheLookup(ctx, req); ok {
				st.session.CacheHits++
				e.handlePage(ctx, st, req, page)
				e.notifyProgress(st.session)
				continue
			}

			st.session.RequestsDispatched++
			inFlight++
			go e.fetchWorker(ctx, req, results)
		}

		if inFlight == 0 {
			if st.cancelled || st.frontier.Len() == 0 {
				break
			}
			// Frontier non-empty with no dispatch can only mean every
			// queued request was dropped by the budget check; loop again.
			continue
		}

		if st.cancelled {
			res := <-results
			inFlight--
			e.handleResult(ctx, st, res)
			e.notifyProgress(st.session)
			continue
		}

		select {
		case res := <-results:
			inFlight--
			e.handleResult(ctx, st, res)
			e.notifyProgress(st.session)
		case <-ctx.Done():
			st.cancelled = true
		}
	}

	reason := model.ReasonFrontierDrained
	switch {
	case st.cancelled:
		reason = model.ReasonCancelled
	case st.budgetHit:
		reason = model.ReasonBudgetExceeded
	}
	st.session.Finalize(reason)

	e.logger.Info("crawl finished",
		"keyword", keyword,
		"reason", string(reason),
		"records", st.session.RecordsEmitted,
		"failures", st.session.Failures,
	)

	if !st.session.Succeeded() {
		return st.session, fmt.Errorf("keyword %q: %w", keyword, ErrNoRecords)
	}
	return st.session, nil
}

// fetchWorker performs one fetch attempt: backoff for retries, permit
// acquisition, fetch, permit release, result report.
func (e *Engine) fetchWorker(ctx context.Context, req Request, results chan<- fetchResult) {
	if req.Attempt > 0 {
		timer := time.NewTimer(e.policy.Backoff(req.Attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			results <- fetchResult{req: req, err: ctx.Err()}
			return
		}
	}

	permit, err := e.governor.Acquire(ctx)
	if err != nil {
		results <- fetchResult{req: req, err: err}
		return
	}

	start := time.Now()
	page, err := e.fetcher.Fetch(ctx, req.URL, req.Referer)
	latency := time.Since(start)
	e.governor.Release(permit, latency, err != nil)

	results <- fetchResult{req: req, page: page, latency: latency, err: err}
}

// cacheLookup returns a cached page for first-attempt requests.
// Cache errors are logged and treated as misses: a broken cache should
// degrade to network fetches, not stop the crawl.
func (e *Engine) cacheLookup(ctx context.Context, req Request) (*model.FetchedPage, bool) {
	if e.cache == nil || req.Attempt > 0 {
		return nil, false
	}
	page, ok, err := e.cache.Get(ctx, req.URL)
	if err != nil {
		e.logger.Warn("cache read failed", "url", req.URL, "error", err)
		return nil, false
	}
	return page, ok
}

// overBudget reports whether the request should be dropped because its
// budget is spent, recording the budget hit on the session state.
func (e *Engine) overBudget(st *runState, req Request) bool {
	switch req.Kind {
	case model.KindSearchResults:
		if st.session.SearchPages >= e.maxPages {
			st.budgetHit = true
			return true
		}
	case model.KindProduct:
		if e.maxItems > 0 && st.session.RecordsEmitted >= e.maxItems {
			st.budgetHit = true
			return true
		}
	}
	return false
}

// handleResult routes one completed fetch: retry, terminal failure, or
// page handling.
func (e *Engine) handleResult(ctx context.Context, st *runState, res fetchResult) {
	if res.err != nil {
		// Failures caused by our own shutdown are not crawl failures.
		if ctx.Err() != nil {
			st.cancelled = true
			return
		}

		switch e.policy.Classify(res.err, res.req.Attempt) {
		case retry.Retry:
			st.session.Retries++
			e.logger.Warn("fetch failed, retrying",
				"url", res.req.URL,
				"attempt", res.req.Attempt,
				"error", res.err,
			)
			next := res.req
			next.Attempt++
			st.frontier.Requeue(next)
		case retry.Exhausted:
			st.session.Failures++
			e.logger.Error("fetch failed permanently",
				"url", res.req.URL,
				"attempt", res.req.Attempt,
				"error", res.err,
			)
		}
		return
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, res.req.URL, res.page); err != nil {
			e.logger.Warn("cache write failed", "url", res.req.URL, "error", err)
		}
	}

	e.handlePage(ctx, st, res.req, res.page)
}

// handlePage routes a fetched page by its type and enqueues discovered
// work.
func (e *Engine) handlePage(ctx context.Context, st *runState, req Request, page *model.FetchedPage) {
	kind := req.Kind
	// A redirect can land a search URL on a product page (or vice
	// versa); trust the body over the link that got us here.
	if got := e.extractor.Classify(page.Body); got != model.KindUnknown && got != kind {
		e.logger.Debug("page kind differs from request",
			"url", page.URL,
			"requested", kind.String(),
			"classified", got.String(),
		)
		kind = got
	}

	switch kind {
	case model.KindSearchResults:
		e.handleSearchPage(st, page)
	case model.KindProduct:
		e.handleProductPage(ctx, st, page)
	default:
		e.logger.Debug("unrecognized page, skipping", "url", page.URL, "status", page.StatusCode)
	}
}

// handleSearchPage extracts product links and the pagination link.
// Product links are enqueued before the next search page so product
// detail work is not starved by pagination.
func (e *Engine) handleSearchPage(st *runState, page *model.FetchedPage) {
	st.session.SearchPages++

	links, err := e.extractor.ProductLinks(page.Body, page.URL)
	if err != nil {
		st.session.Failures++
		e.logger.Error("search page extraction failed", "url", page.URL, "error", err)
		return
	}

	var enqueued int
	for _, link := range links {
		if st.frontier.Push(Request{URL: link, Kind: model.KindProduct, Referer: page.URL}) {
			enqueued++
		}
	}

	next, err := e.extractor.NextPageLink(page.Body, page.URL)
	if err != nil {
		e.logger.Warn("pagination extraction failed", "url", page.URL, "error", err)
	}
	if next != "" {
		if st.session.SearchPages >= e.maxPages {
			st.budgetHit = true
			e.logger.Info("page budget reached, not following pagination", "url", next)
		} else {
			st.frontier.Push(Request{URL: next, Kind: model.KindSearchResults, Referer: page.URL})
		}
	}

	e.logger.Debug("search page handled",
		"url", page.URL,
		"products", enqueued,
		"next_page", next != "",
	)
}

// handleProductPage extracts a record and delivers it to the pipeline.
func (e *Engine) handleProductPage(ctx context.Context, st *runState, page *model.FetchedPage) {
	st.session.ProductPages++

	rec, err := e.extractor.Record(page.Body, page.URL)
	if err != nil {
		st.session.Failures++
		e.logger.Error("product extraction failed", "url", page.URL, "error", err)
		return
	}

	before := e.pipeline.Emitted()
	if err := e.pipeline.Process(ctx, rec); err != nil {
		st.session.Failures++
		e.logger.Error("record delivery failed", "url", page.URL, "error", err)
		return
	}
	if e.pipeline.Emitted() > before {
		st.session.RecordsEmitted++
		if e.maxItems > 0 && st.session.RecordsEmitted >= e.maxItems {
			st.budgetHit = true
		}
	}
}

// notifyProgress invokes the progress callback if one is set.
func (e *Engine) notifyProgress(session *model.CrawlSession) {
	if e.onProgress != nil {
		e.onProgress(session)
	}
}
