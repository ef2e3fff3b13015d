package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// Pipeline pushes each record through its stages in order and then
// delivers it to the sink.
type Pipeline struct {
	// stages contains the ordered list of stages each record passes.
	stages []Stage

	// sink receives records that survive every stage.
	sink Sink

	// logger is used for structured logging during delivery.
	logger *slog.Logger

	// emitted counts records delivered to the sink.
	emitted int

	// dropped counts records rejected by a stage.
	dropped int
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern for clean API design.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStages sets the stages each record passes, in order.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

// NewPipeline creates a pipeline delivering to sink. Without WithStages
// the default is normalization followed by validation.
func NewPipeline(sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:   sink,
		stages: []Stage{NewNormalizeStage(), NewValidateStage()},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Process runs the record through every stage and delivers it.
// A stage returning ErrDropRecord discards the record without error.
func (p *Pipeline) Process(ctx context.Context, record *model.ProductRecord) error {
	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := stage.Do(ctx, record); err != nil {
			if errors.Is(err, ErrDropRecord) {
				p.dropped++
				p.logger.Debug("record dropped",
					"stage", stage.Name(),
					"url", record.SourceURL,
					"reason", err,
				)
				return nil
			}
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}
	}

	if err := p.sink.Accept(ctx, record); err != nil {
		return fmt.Errorf("failed to deliver record: %w", err)
	}

	p.emitted++
	p.logger.Debug("record emitted",
		"id", record.ID,
		"title", record.Title,
	)
	return nil
}

// Emitted returns the number of records delivered so far.
func (p *Pipeline) Emitted() int {
	return p.emitted
}

// Dropped returns the number of records rejected by a stage so far.
func (p *Pipeline) Dropped() int {
	return p.dropped
}

// Close closes the underlying sink.
func (p *Pipeline) Close() error {
	return p.sink.Close()
}
