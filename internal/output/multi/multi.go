package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

// Multi fans out records to multiple output.Output implementations.
// A failing output does not stop delivery to the ones after it.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs. Nil outputs are
// skipped so callers can pass optional sinks directly.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write delivers the record to every wrapped output in order and joins
// their errors.
func (m *Multi) Write(ctx context.Context, record model.Record) error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
