package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yuki-osaki/marketscan/internal/model"
)

func testSessions() []*model.CrawlSession {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []*model.CrawlSession{
		{
			ID:                 "11111111-1111-1111-1111-111111111111",
			Keyword:            "laptops",
			SeedURL:            "https://www.example.com/s?k=laptops",
			StartedAt:          started,
			FinishedAt:         started.Add(42 * time.Second),
			RequestsDispatched: 24,
			SearchPages:        3,
			ProductPages:       20,
			RecordsEmitted:     18,
			Failures:           1,
			Retries:            4,
			CacheHits:          6,
			Reason:             model.ReasonFrontierDrained,
		},
		{
			ID:         "22222222-2222-2222-2222-222222222222",
			Keyword:    "keyboards",
			SeedURL:    "https://www.example.com/s?k=keyboards",
			StartedAt:  started,
			FinishedAt: started.Add(5 * time.Second),
			Reason:     model.ReasonCancelled,
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders per-session blocks and totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		n, err := w.Write(testSessions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"CRAWL SUMMARY",
			"Keyword:          laptops",
			"Records:        18",
			"Keyword:          keyboards",
			"NO RECORDS (cancelled)",
			"TOTALS (2 keywords)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("verbose mode includes session ID and seed URL", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(testSessions()[:1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "11111111-1111-1111-1111-111111111111") {
			t.Error("expected session ID in verbose output")
		}
		if !strings.Contains(out, "https://www.example.com/s?k=laptops") {
			t.Error("expected seed URL in verbose output")
		}
	})

	t.Run("single session omits totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(testSessions()[:1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "TOTALS") {
			t.Error("expected no totals block for a single session")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("emits a decodable envelope", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithVersion("1.2.3"))

		if _, err := w.Write(testSessions()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version       string                `json:"version"`
			Sessions      []*model.CrawlSession `json:"sessions"`
			TotalRecords  int                   `json:"total_records"`
			TotalFailures int                   `json:"total_failures"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}

		if decoded.Version != "1.2.3" {
			t.Errorf("expected version 1.2.3, got %q", decoded.Version)
		}
		if len(decoded.Sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(decoded.Sessions))
		}
		if decoded.TotalRecords != 18 {
			t.Errorf("expected 18 total records, got %d", decoded.TotalRecords)
		}
		if decoded.TotalFailures != 1 {
			t.Errorf("expected 1 total failure, got %d", decoded.TotalFailures)
		}
	})

	t.Run("pretty print produces indented output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(testSessions()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented JSON output")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(testSessions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Summary",
		"laptops",
		"## keyboards",
		"frontier drained",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

// errWriter always fails, for MultiWriter error propagation tests.
type errWriter struct{}

func (errWriter) Write([]*model.CrawlSession) (int, error) {
	return 0, errors.New("sink broken")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

		if _, err := m.Write(testSessions()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(errWriter{}, NewSimpleWriter(&after))

		if _, err := m.Write(testSessions()); err == nil {
			t.Error("expected error from failing writer")
		}
		if after.Len() != 0 {
			t.Error("expected no output past the failing writer")
		}
	})
}
