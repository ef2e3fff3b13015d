package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// ErrDropRecord signals that a stage rejected the record. The pipeline
// stops processing the record and does not deliver it to any sink; it is
// not treated as a failure.
var ErrDropRecord = errors.New("record dropped")

// Sink receives finished product records.
type Sink interface {
	// Accept delivers one record. Implementations must be safe to call
	// from a single goroutine; the pipeline serializes delivery.
	Accept(ctx context.Context, record *model.ProductRecord) error

	// Close flushes and releases the sink's resources.
	Close() error
}

// Stage transforms or filters a record before delivery.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows stages to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., per-stage metrics)
type Stage interface {
	// Do processes the record in place. Returning ErrDropRecord (or an
	// error wrapping it) discards the record silently; any other error
	// fails the delivery.
	Do(ctx context.Context, record *model.ProductRecord) error

	// Name returns the stage's name for logging purposes.
	Name() string
}

// MultiSink fans one record out to several sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink bundles the given sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Accept delivers the record to every sink, stopping at the first error.
func (m *MultiSink) Accept(ctx context.Context, record *model.ProductRecord) error {
	for _, s := range m.sinks {
		if err := s.Accept(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the errors joined.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sink: %w", err))
		}
	}
	return errors.Join(errs...)
}
