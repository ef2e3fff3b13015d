package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Kind classifies a fetch failure for the retry policy.
type Kind int

// Failure kinds. The retry policy treats timeouts, resets, generic
// transport faults, HTTP 5xx, and HTTP 429 as retryable; everything else
// is terminal.
const (
	// KindTransport covers transport-level faults that are neither
	// timeouts nor resets: DNS failures, refused connections, broken
	// proxies. These are transient often enough to be worth retrying.
	KindTransport Kind = iota

	// KindTimeout means the per-fetch deadline elapsed.
	KindTimeout

	// KindConnReset means the peer reset the connection mid-transfer.
	KindConnReset

	// KindHTTPStatus means the server answered with a non-2xx status.
	// The status code is carried in Error.Status.
	KindHTTPStatus

	// KindParse means a response was received but could not be
	// interpreted (e.g., the extractor failed on malformed markup).
	KindParse
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindConnReset:
		return "connection reset"
	case KindHTTPStatus:
		return "http status"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
//
// Design decision: We use one error type with a Kind field rather than a
// sentinel per failure mode because the retry policy needs the status code
// alongside the kind, and callers match with errors.As either way.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// URL is the request URL that failed.
	URL string

	// Status is the HTTP status code for KindHTTPStatus, zero otherwise.
	Status int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a transport error from http.Client.Do to a failure kind.
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return KindConnReset
	}

	return KindTransport
}
