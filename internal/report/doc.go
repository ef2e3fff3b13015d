// Package report renders crawl session summaries. A summary covers one
// or more keyword sessions from a single run and is available as plain
// text for terminals, JSON for tooling, and Markdown for sharing.
package report
