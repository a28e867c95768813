package compactor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/blotter/internal/model"
)

// Verbosity controls how much of a prediction is retained on output.
type Verbosity int

const (
	Minimal  Verbosity = iota // category and severity only
	Standard                  // adds report number, confidence and summary
	Full                      // adds extracted fields and structured features
)

// SummaryLimit is the maximum rune length of a summary before "...".
const SummaryLimit = 120

// ParseVerbosity maps "minimal", "standard" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal, nil
	case "standard", "":
		return Standard, nil
	case "full":
		return Full, nil
	default:
		return Standard, fmt.Errorf("invalid verbosity %q (valid: minimal, standard, full)", s)
	}
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// Compactor trims predictions and records to a verbosity level.
type Compactor struct {
	Verbosity Verbosity
}

// New creates a Compactor with the given verbosity level.
func New(v Verbosity) *Compactor {
	return &Compactor{Verbosity: v}
}

// Compact returns p with the detail its verbosity drops cleared.
func (c *Compactor) Compact(p model.Prediction) model.Prediction {
	switch c.Verbosity {
	case Minimal:
		return model.Prediction{Category: p.Category, Severity: p.Severity}
	case Standard:
		p.Fields = nil
		p.Features = nil
		return p
	default:
		return p
	}
}

// CompactRecord applies Compact to the record's prediction. The report
// number is dropped at Minimal.
func (c *Compactor) CompactRecord(r model.Record) model.Record {
	r.Prediction = c.Compact(r.Prediction)
	if c.Verbosity == Minimal {
		r.ReportNumber = ""
	}
	return r
}

// Summarize shortens a description to at most SummaryLimit runes, cutting
// at a word boundary when there is one.
func Summarize(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= SummaryLimit {
		return text
	}
	cut := strings.TrimSuffix(truncate(text, SummaryLimit), "...")
	if rest := text[len(cut):]; !strings.HasPrefix(rest, " ") {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

// truncate cuts s to maxRunes runes and appends "...".
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
