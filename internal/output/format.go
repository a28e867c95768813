package output

import (
	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/model"
)

// FormatRecord returns a copy of the record with fields stripped according to verbosity.
// At Minimal: only category and severity survive in the prediction, and the
// report number is dropped. At Standard: extracted fields and derived features
// are dropped. At Full: all fields preserved.
func FormatRecord(r model.Record, verbosity compactor.Verbosity) model.Record {
	return compactor.New(verbosity).CompactRecord(r)
}
