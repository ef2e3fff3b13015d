package retry

import (
	"errors"
	"net/http"
	"time"

	"github.com/yuki-osaki/marketscan/internal/fetch"
)

// Defaults for the retry policy.
const (
	// DefaultMaxRetries is the number of re-attempts after the first
	// failure, so a permanently failing request is tried
	// DefaultMaxRetries+1 times in total.
	DefaultMaxRetries = 5

	// DefaultBackoffStep is the linear backoff unit: the n-th retry
	// waits n * DefaultBackoffStep before re-entering the governor.
	DefaultBackoffStep = 1 * time.Second
)

// Decision is the outcome of classifying a failure.
type Decision int

const (
	// Retry means the request should be re-enqueued with an
	// incremented attempt count.
	Retry Decision = iota

	// Exhausted means the request is terminally failed: either the
	// failure kind is not retryable or the attempt budget is spent.
	Exhausted
)

// String returns a human-readable name for the decision.
func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "exhausted"
}

// Policy decides whether failed fetches are retried.
type Policy struct {
	// maxRetries is the number of re-attempts after the first failure.
	maxRetries int

	// step is the linear backoff unit.
	step time.Duration
}

// New creates a Policy. Negative maxRetries is treated as zero
// (fail after the first attempt); non-positive step disables backoff.
func New(maxRetries int, step time.Duration) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if step < 0 {
		step = 0
	}
	return &Policy{maxRetries: maxRetries, step: step}
}

// NewDefault creates a Policy with the default retry budget and backoff.
func NewDefault() *Policy {
	return New(DefaultMaxRetries, DefaultBackoffStep)
}

// Classify decides the fate of a failed request. attempt is the
// zero-based index of the attempt that just failed, so a request whose
// first attempt failed arrives with attempt 0 and is retried while
// attempt < maxRetries.
func (p *Policy) Classify(err error, attempt int) Decision {
	if !Retryable(err) {
		return Exhausted
	}
	if attempt >= p.maxRetries {
		return Exhausted
	}
	return Retry
}

// Backoff returns the delay before the given attempt (1-based: the first
// retry is attempt 1). Backoff grows linearly with the attempt count.
func (p *Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * p.step
}

// Retryable reports whether a failure kind is worth re-attempting.
//
// Retryable: timeouts, connection resets, other transport faults
// (DNS, refused connections), HTTP 5xx, and HTTP 429.
// Terminal: other HTTP 4xx (the server understood us and said no) and
// parse failures (retrying won't fix broken markup).
func Retryable(err error) bool {
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		return false
	}

	switch fetchErr.Kind {
	case fetch.KindTimeout, fetch.KindConnReset, fetch.KindTransport:
		return true
	case fetch.KindHTTPStatus:
		return fetchErr.Status >= 500 || fetchErr.Status == http.StatusTooManyRequests
	case fetch.KindParse:
		return false
	default:
		return false
	}
}
