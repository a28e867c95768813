package model

import "time"

// Report is the intermediate type produced by sources and consumed by the engine.
// Pages hold the raw text of each document page in reading order.
type Report struct {
	ReceivedAt time.Time
	Source     string         // origin (file path, upload name)
	Pages      []string       // extracted page text
	Metadata   map[string]any // source-specific metadata
}
