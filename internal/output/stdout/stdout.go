package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

// Output writes one JSON record per line to stdout, or one indented
// document per record when pretty.
type Output struct {
	mu        sync.Mutex
	enc       *json.Encoder
	verbosity compactor.Verbosity
}

// New creates an Output on os.Stdout.
func New(verbosity compactor.Verbosity, pretty bool) *Output {
	return NewWriter(os.Stdout, verbosity, pretty)
}

// NewWriter is like New but writes to w.
func NewWriter(w io.Writer, verbosity compactor.Verbosity, pretty bool) *Output {
	enc := json.NewEncoder(w)
	// Report text is full of "&" and "<"; keep it readable.
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, verbosity: verbosity}
}

// Write encodes record at the output's verbosity.
func (o *Output) Write(_ context.Context, record model.Record) error {
	rec := output.FormatRecord(record, o.verbosity)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(rec); err != nil {
		return fmt.Errorf("stdout output: record %s: %w", record.ID, err)
	}
	return nil
}

// Close is a no-op; stdout stays open for the process.
func (o *Output) Close() error { return nil }
