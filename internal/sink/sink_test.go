package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// memorySink collects records for assertions.
type memorySink struct {
	records []*model.ProductRecord
	closed  bool
	failErr error
}

func (m *memorySink) Accept(_ context.Context, record *model.ProductRecord) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func TestPipelineProcess(t *testing.T) {
	t.Parallel()

	t.Run("normalizes and delivers a record", func(t *testing.T) {
		t.Parallel()

		mem := &memorySink{}
		p := NewPipeline(mem)

		rec := &model.ProductRecord{
			ID:        "B000WIDGETA",
			Title:     "  Widget A  ",
			SourceURL: "https://www.example.com/dp/B000WIDGETA",
		}
		if err := p.Process(context.Background(), rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(mem.records) != 1 {
			t.Fatalf("expected 1 delivered record, got %d", len(mem.records))
		}
		if mem.records[0].Title != "Widget A" {
			t.Errorf("expected normalized title, got %q", mem.records[0].Title)
		}
		if p.Emitted() != 1 || p.Dropped() != 0 {
			t.Errorf("expected emitted=1 dropped=0, got emitted=%d dropped=%d", p.Emitted(), p.Dropped())
		}
	})

	t.Run("drops empty records without error", func(t *testing.T) {
		t.Parallel()

		mem := &memorySink{}
		p := NewPipeline(mem)

		rec := &model.ProductRecord{SourceURL: "https://www.example.com/dp/B000EMPTY00"}
		if err := p.Process(context.Background(), rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(mem.records) != 0 {
			t.Errorf("expected no delivered records, got %d", len(mem.records))
		}
		if p.Emitted() != 0 || p.Dropped() != 1 {
			t.Errorf("expected emitted=0 dropped=1, got emitted=%d dropped=%d", p.Emitted(), p.Dropped())
		}
	})

	t.Run("sink failure is surfaced", func(t *testing.T) {
		t.Parallel()

		mem := &memorySink{failErr: errors.New("disk full")}
		p := NewPipeline(mem)

		rec := &model.ProductRecord{ID: "B000WIDGETA", Title: "Widget A"}
		if err := p.Process(context.Background(), rec); err == nil {
			t.Error("expected delivery error")
		}
	})

	t.Run("cancelled context stops processing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := NewPipeline(&memorySink{})
		err := p.Process(ctx, &model.ProductRecord{ID: "B000WIDGETA", Title: "Widget A"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("close closes the sink", func(t *testing.T) {
		t.Parallel()

		mem := &memorySink{}
		p := NewPipeline(mem)
		if err := p.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !mem.closed {
			t.Error("expected sink to be closed")
		}
	})
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	t.Run("delivers to every sink", func(t *testing.T) {
		t.Parallel()

		a := &memorySink{}
		b := &memorySink{}
		m := NewMultiSink(a, b)

		rec := &model.ProductRecord{ID: "B000WIDGETA", Title: "Widget A"}
		if err := m.Accept(context.Background(), rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(a.records) != 1 || len(b.records) != 1 {
			t.Errorf("expected both sinks to receive the record, got %d and %d", len(a.records), len(b.records))
		}

		if err := m.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !a.closed || !b.closed {
			t.Error("expected both sinks to be closed")
		}
	})

	t.Run("stops at the first failing sink", func(t *testing.T) {
		t.Parallel()

		a := &memorySink{failErr: errors.New("broken")}
		b := &memorySink{}
		m := NewMultiSink(a, b)

		if err := m.Accept(context.Background(), &model.ProductRecord{ID: "x"}); err == nil {
			t.Error("expected error from failing sink")
		}
		if len(b.records) != 0 {
			t.Errorf("expected no delivery past the failure, got %d", len(b.records))
		}
	})
}

func TestJSONLSink(t *testing.T) {
	t.Parallel()

	t.Run("writes one JSON object per line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s := NewJSONLSink(&buf)

		records := []*model.ProductRecord{
			{ID: "B000WIDGETA", Title: "Widget A", Price: "$19.99"},
			{ID: "B000WIDGETB", Title: "Widget B"},
		}
		for _, rec := range records {
			if err := s.Accept(context.Background(), rec); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}

		var decoded model.ProductRecord
		if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
			t.Fatalf("first line is not valid JSON: %v", err)
		}
		if decoded.ID != "B000WIDGETA" || decoded.Price != "$19.99" {
			t.Errorf("unexpected decoded record %+v", decoded)
		}
	})

	t.Run("file sink creates and closes its file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "records.jsonl")
		s, err := NewJSONLFileSink(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := s.Accept(context.Background(), &model.ProductRecord{ID: "B000WIDGETA"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSQLiteSink(t *testing.T) {
	t.Parallel()

	t.Run("stores and retrieves a record", func(t *testing.T) {
		t.Parallel()

		s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "products.db"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close() //nolint:errcheck

		rec := &model.ProductRecord{
			ID:          "B000WIDGETA",
			Title:       "Widget A",
			Price:       "$19.99",
			Rating:      "4.5 out of 5",
			ReviewCount: "1,234 ratings",
			Features:    []string{"Durable construction", "Two-year warranty"},
			Description: "The finest widget money can buy.",
			Images:      []string{"https://img.example.com/widget-a-1.jpg"},
			SourceURL:   "https://www.example.com/dp/B000WIDGETA",
		}
		if err := s.Accept(context.Background(), rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := s.Get(context.Background(), "B000WIDGETA")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected a stored record")
		}
		if got.Title != rec.Title || got.Price != rec.Price {
			t.Errorf("unexpected record %+v", got)
		}
		if len(got.Features) != 2 || got.Features[0] != "Durable construction" {
			t.Errorf("unexpected features %v", got.Features)
		}
		if len(got.Images) != 1 {
			t.Errorf("unexpected images %v", got.Images)
		}
	})

	t.Run("re-crawled item updates in place", func(t *testing.T) {
		t.Parallel()

		s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "products.db"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close() //nolint:errcheck

		first := &model.ProductRecord{ID: "B000WIDGETA", Title: "Widget A", Price: "$19.99"}
		second := &model.ProductRecord{ID: "B000WIDGETA", Title: "Widget A", Price: "$14.99"}

		for _, rec := range []*model.ProductRecord{first, second} {
			if err := s.Accept(context.Background(), rec); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		count, err := s.Count(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 row after re-crawl, got %d", count)
		}

		got, err := s.Get(context.Background(), "B000WIDGETA")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Price != "$14.99" {
			t.Errorf("expected updated price, got %q", got.Price)
		}
	})

	t.Run("unknown item returns nil", func(t *testing.T) {
		t.Parallel()

		s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "products.db"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close() //nolint:errcheck

		got, err := s.Get(context.Background(), "B000MISSING0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for unknown item, got %+v", got)
		}
	})

	t.Run("lists stored records with a limit", func(t *testing.T) {
		t.Parallel()

		s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "products.db"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close() //nolint:errcheck

		for _, id := range []string{"B000WIDGETA", "B000WIDGETB", "B000WIDGETC"} {
			rec := &model.ProductRecord{ID: id, Title: "Widget " + id[len(id)-1:], SourceURL: "https://www.example.com/dp/" + id}
			if err := s.Accept(context.Background(), rec); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		all, err := s.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 records, got %d", len(all))
		}

		limited, err := s.List(context.Background(), 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 records, got %d", len(limited))
		}
	})
}
