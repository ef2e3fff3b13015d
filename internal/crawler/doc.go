// Package crawler orchestrates a keyword crawl: it seeds the frontier
// with a search URL, routes fetched pages to the extractor, enqueues the
// product and pagination links it finds, and feeds extracted records to
// the sink pipeline.
//
// All crawl state lives in a single control goroutine; fetch workers only
// fetch. This keeps the frontier, the session counters, and the budget
// checks free of locks and makes termination easy to reason about: the
// run ends exactly when no request is queued and none is in flight.
package crawler
