package report

import (
	"encoding/json"
	"io"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// JSONWriter outputs session summaries in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. It's part of the standard library (no extra dependencies)
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// version is the tool version stamped into the output.
	version string

	// indent enables pretty-printed JSON output.
	indent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON output.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithVersion stamps the given tool version into the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// jsonSummary is the envelope written by JSONWriter.
//
// Design decision: We wrap the sessions rather than emitting a bare
// array because this allows us to add output-specific fields (version,
// totals) without polluting the core data structure.
type jsonSummary struct {
	// Version is the tool version that generated this summary.
	Version string `json:"version,omitempty"`

	// Sessions holds one entry per crawled keyword.
	Sessions []*model.CrawlSession `json:"sessions"`

	// TotalRecords is the sum of emitted records across sessions.
	TotalRecords int `json:"total_records"`

	// TotalFailures is the sum of exhausted requests across sessions.
	TotalFailures int `json:"total_failures"`
}

// Write outputs the session summary as a single JSON document.
func (w *JSONWriter) Write(sessions []*model.CrawlSession) (int, error) {
	t := sumSessions(sessions)
	summary := jsonSummary{
		Version:       w.version,
		Sessions:      sessions,
		TotalRecords:  t.records,
		TotalFailures: t.failures,
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(summary, "", "  ")
	} else {
		data, err = json.Marshal(summary)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
