package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// JSONLSink writes one JSON object per line to a stream. The format is
// append-friendly, so interrupted crawls leave a usable file.
//
// Accept is safe for concurrent use: batch runs share one sink across
// keyword pipelines, and interleaved writes would corrupt lines.
type JSONLSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLSink wraps an arbitrary writer. The sink never closes w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w)}
}

// NewJSONLFileSink creates (or truncates) path and writes records to it.
func NewJSONLFileSink(path string) (*JSONLSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &JSONLSink{enc: json.NewEncoder(f), closer: f}, nil
}

// Accept writes the record as one JSON line.
func (s *JSONLSink) Accept(_ context.Context, record *model.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the sink owns one.
func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
