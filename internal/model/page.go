package model

import (
	"strings"
	"time"
)

// MaxBodySize is the default maximum response body size to retain.
// Marketplace pages are large but bounded; 5MB prevents memory exhaustion
// from unexpectedly large responses while keeping full search pages intact.
const MaxBodySize = 5 * 1024 * 1024 // 5MB

// FetchedPage represents one successfully fetched HTTP response.
//
// Design decision: We store the final URL (after redirects) rather than the
// requested URL because product extraction derives the item identifier from
// the URL path, and marketplaces canonicalize product URLs via redirect.
type FetchedPage struct {
	// URL is the final URL after any redirects.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Body is the response body, truncated to MaxBodySize.
	Body []byte `json:"-"`

	// FetchedAt is when the response was received. For cache hits this is
	// the original fetch time, not the hit time.
	FetchedAt time.Time `json:"fetched_at"`
}

// IsHTML reports whether the content type indicates an HTML document.
func (p *FetchedPage) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		strings.HasPrefix(p.ContentType, "application/xhtml+xml")
}

// TruncateBody enforces the MaxBodySize limit on the body.
// Call this after setting Body.
func (p *FetchedPage) TruncateBody() {
	if len(p.Body) > MaxBodySize {
		p.Body = p.Body[:MaxBodySize]
	}
}
