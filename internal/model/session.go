package model

import (
	"time"

	"github.com/google/uuid"
)

// TerminationReason explains why a crawl session ended.
type TerminationReason string

// Termination reasons reported in session summaries.
const (
	// ReasonFrontierDrained means every discovered request reached a
	// terminal state and no work remained. This is the normal outcome.
	ReasonFrontierDrained TerminationReason = "frontier drained"

	// ReasonBudgetExceeded means the page or item budget was reached.
	// This is a normal termination, not an error: budgets exist to
	// guarantee termination on unbounded result sets.
	ReasonBudgetExceeded TerminationReason = "budget exceeded"

	// ReasonCancelled means the run context was cancelled (e.g., SIGINT).
	// In-flight fetches were allowed to complete but no new requests
	// were dispatched.
	ReasonCancelled TerminationReason = "cancelled"
)

// CrawlSession is the process-wide state of one crawl run.
//
// Design decision: Session state is an explicit value created by the
// orchestrator and returned from Run, not ambient package state. Counters
// are mutated only from the orchestrator's control goroutine, so the struct
// carries no lock; concurrent readers must use the value returned after
// Run completes.
type CrawlSession struct {
	// ID uniquely identifies this session, useful when several keyword
	// crawls run in one batch and write into the same database.
	ID string `json:"id"`

	// Keyword is the search keyword that seeded the session.
	Keyword string `json:"keyword"`

	// SeedURL is the initial search URL built from the keyword.
	SeedURL string `json:"seed_url"`

	// StartedAt is when the orchestrator began dispatching.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the frontier drained or the run was stopped.
	FinishedAt time.Time `json:"finished_at"`

	// RequestsDispatched counts fetches handed to the transport,
	// excluding cache hits.
	RequestsDispatched int `json:"requests_dispatched"`

	// SearchPages counts successfully handled search-result pages.
	SearchPages int `json:"search_pages"`

	// ProductPages counts successfully handled product pages.
	ProductPages int `json:"product_pages"`

	// RecordsEmitted counts records accepted by the sink.
	RecordsEmitted int `json:"records_emitted"`

	// Failures counts requests that exhausted their retry budget.
	Failures int `json:"failures"`

	// Retries counts re-dispatched attempts across all requests.
	Retries int `json:"retries"`

	// CacheHits counts requests served from the response cache without
	// touching the network.
	CacheHits int `json:"cache_hits"`

	// Reason records why the session ended.
	Reason TerminationReason `json:"reason"`
}

// NewCrawlSession creates a session for the given keyword and seed URL.
func NewCrawlSession(keyword, seedURL string) *CrawlSession {
	return &CrawlSession{
		ID:        uuid.New().String(),
		Keyword:   keyword,
		SeedURL:   seedURL,
		StartedAt: time.Now().UTC(),
	}
}

// Finalize stamps the finish time and termination reason.
func (s *CrawlSession) Finalize(reason TerminationReason) {
	s.FinishedAt = time.Now().UTC()
	s.Reason = reason
}

// Duration returns the elapsed wall time of the session.
// If the session has not finished, it measures up to now.
func (s *CrawlSession) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Succeeded reports whether the session emitted at least one record.
// A crawl that produced nothing is a hard failure: either the seed was
// wrong, the site blocked us, or the extractor no longer matches the
// markup. All three need operator attention.
func (s *CrawlSession) Succeeded() bool {
	return s.RecordsEmitted > 0
}
