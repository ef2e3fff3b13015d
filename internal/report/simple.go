package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a run.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables per-session detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-session details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the session summary in human-readable format.
func (w *SimpleWriter) Write(sessions []*model.CrawlSession) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)

	for _, s := range sessions {
		w.writeSession(&sb, s)
	}

	if len(sessions) > 1 {
		w.writeTotals(&sb, sessions)
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the summary header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeSession writes one session's block.
func (w *SimpleWriter) writeSession(sb *strings.Builder, s *model.CrawlSession) {
	sb.WriteString(fmt.Sprintf("Keyword:          %s\n", s.Keyword))
	sb.WriteString(fmt.Sprintf("Started:          %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:         %s\n", s.Duration().Round(durationPrecision)))
	sb.WriteString(fmt.Sprintf("Status:           %s\n", statusText(s)))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  Requests:       %d\n", s.RequestsDispatched))
	sb.WriteString(fmt.Sprintf("  Cache hits:     %d\n", s.CacheHits))
	sb.WriteString(fmt.Sprintf("  Search pages:   %d\n", s.SearchPages))
	sb.WriteString(fmt.Sprintf("  Product pages:  %d\n", s.ProductPages))
	sb.WriteString(fmt.Sprintf("  Records:        %d\n", s.RecordsEmitted))
	sb.WriteString(fmt.Sprintf("  Retries:        %d\n", s.Retries))
	sb.WriteString(fmt.Sprintf("  Failures:       %d\n", s.Failures))

	if w.verbose {
		sb.WriteString(fmt.Sprintf("  Session ID:     %s\n", s.ID))
		sb.WriteString(fmt.Sprintf("  Seed URL:       %s\n", s.SeedURL))
	}
	sb.WriteString("\n")
}

// writeTotals writes the cross-session totals block.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, sessions []*model.CrawlSession) {
	t := sumSessions(sessions)

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("TOTALS (%d keywords)\n", len(sessions)))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Requests:       %d\n", t.requests))
	sb.WriteString(fmt.Sprintf("  Cache hits:     %d\n", t.hits))
	sb.WriteString(fmt.Sprintf("  Records:        %d\n", t.records))
	sb.WriteString(fmt.Sprintf("  Failures:       %d\n", t.failures))
	sb.WriteString("\n")
}

// statusText describes the session outcome in one phrase.
func statusText(s *model.CrawlSession) string {
	if !s.Succeeded() {
		return fmt.Sprintf("NO RECORDS (%s)", s.Reason)
	}
	return string(s.Reason)
}
