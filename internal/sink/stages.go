package sink

import (
	"context"
	"fmt"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// NormalizeStage trims whitespace from every field and discards blank
// feature bullets.
type NormalizeStage struct{}

// NewNormalizeStage creates the normalization stage.
func NewNormalizeStage() *NormalizeStage {
	return &NormalizeStage{}
}

// Do normalizes the record in place.
func (s *NormalizeStage) Do(_ context.Context, record *model.ProductRecord) error {
	record.Normalize()
	return nil
}

// Name returns the stage name.
func (s *NormalizeStage) Name() string {
	return "normalize"
}

// ValidateStage drops records that carry no extracted data. Pages that
// render the product shell without any of the expected fields produce
// such records, and storing them would only pollute the output.
type ValidateStage struct{}

// NewValidateStage creates the validation stage.
func NewValidateStage() *ValidateStage {
	return &ValidateStage{}
}

// Do rejects empty records with ErrDropRecord.
func (s *ValidateStage) Do(_ context.Context, record *model.ProductRecord) error {
	if record.IsEmpty() {
		return fmt.Errorf("no fields extracted from %s: %w", record.SourceURL, ErrDropRecord)
	}
	return nil
}

// Name returns the stage name.
func (s *ValidateStage) Name() string {
	return "validate"
}
