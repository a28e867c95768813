package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Severity is a tier from 1 (least severe) to 5. The zero value means the
// category is not in the severity table.
type Severity int

// SeverityUnknown marks a category with no table entry.
const SeverityUnknown Severity = 0

// Known reports whether the severity has a tier.
func (s Severity) Known() bool {
	return s >= 1 && s <= 5
}

func (s Severity) String() string {
	if !s.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(s))
}

// MarshalJSON encodes unknown severity as null.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Known() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a tier number or null.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var n *int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n == nil {
		*s = SeverityUnknown
		return nil
	}
	*s = Severity(*n)
	return nil
}

// Prediction is the engine's output for one report.
type Prediction struct {
	Category   string              `json:"category"`
	Severity   Severity            `json:"severity"`
	Confidence float64             `json:"confidence,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	Fields     FieldMap            `json:"fields,omitempty"`
	Features   *StructuredFeatures `json:"features,omitempty"`
}

// Record wraps a prediction with delivery metadata for outputs. Duplicates
// counts later copies of the same report folded into this one.
type Record struct {
	ID           string     `json:"id"`
	Source       string     `json:"source,omitempty"`
	ReportNumber string     `json:"report_number,omitempty"`
	ProcessedAt  time.Time  `json:"processed_at"`
	Prediction   Prediction `json:"prediction"`
	Error        string     `json:"error,omitempty"`
	Duplicates   int        `json:"duplicates,omitempty"`
}
