package report

import (
	"io"
	"time"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// durationPrecision is the rounding applied to durations before display.
const durationPrecision = 10 * time.Millisecond

// Writer defines the interface for session summary output.
// Implementations render the sessions of one run in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs a summary of the given sessions to the configured
	// destination. Returns the number of bytes written and any error
	// encountered.
	Write(sessions []*model.CrawlSession) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write session summaries, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(sessions []*model.CrawlSession) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(sessions)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for summary writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// totals accumulates counters across sessions.
type totals struct {
	requests int
	search   int
	products int
	records  int
	failures int
	retries  int
	hits     int
}

// sumSessions adds up the counters of all sessions.
func sumSessions(sessions []*model.CrawlSession) totals {
	var t totals
	for _, s := range sessions {
		t.requests += s.RequestsDispatched
		t.search += s.SearchPages
		t.products += s.ProductPages
		t.records += s.RecordsEmitted
		t.failures += s.Failures
		t.retries += s.Retries
		t.hits += s.CacheHits
	}
	return t
}
