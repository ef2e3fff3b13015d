package crawler

import "github.com/yuki-osaki/marketscan/internal/model"

// Request is one unit of crawl work: a URL, what we expect to find
// there, and how often it has been attempted.
type Request struct {
	// URL is the absolute page URL to fetch.
	URL string

	// Kind is the expected page type, set when the link was discovered:
	// pagination links are search pages, product links are product
	// pages. The handler double-checks against the fetched body because
	// redirects can move a URL onto a different page type.
	Kind model.PageKind

	// Referer is the URL of the page that linked here, sent as the
	// Referer header so the request chain looks like navigation.
	Referer string

	// Attempt is the zero-based attempt counter. The first fetch is
	// attempt 0; each retry re-enqueues the request with Attempt+1.
	Attempt int
}
