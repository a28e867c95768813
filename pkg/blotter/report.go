package blotter

import "time"

// Report is a document with optional provenance. Use with ClassifyReports
// when you have page boundaries and source information.
// For a single text, use Classify() instead.
type Report struct {
	Pages      []string       // Page text in reading order
	Source     string         // Origin, e.g. a file name (optional)
	ReceivedAt time.Time      // When the report arrived (zero = time.Now())
	Metadata   map[string]any // Additional context (optional, not used in classification)
}
