package dedup

import (
	"time"

	"github.com/crimson-sun/blotter/internal/model"
)

// Config controls deduplication behavior.
type Config struct {
	Window time.Duration // grouping window (default 5s)
}

// DefaultWindow is used when Config.Window is zero.
const DefaultWindow = 5 * time.Second

// Deduplicator folds repeated copies of the same report, as produced when
// a scanner re-saves a file or a report is amended shortly after filing.
type Deduplicator struct {
	cfg Config
}

// New creates a Deduplicator with the given config.
func New(cfg Config) *Deduplicator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Deduplicator{cfg: cfg}
}

// Window returns the grouping window.
func (d *Deduplicator) Window() time.Duration {
	return d.cfg.Window
}

// group accumulates copies of one report that share a predicted category.
type group struct {
	record  model.Record
	count   int
	firstTS time.Time
}

// DeduplicateBatch folds records sharing a report number and category whose
// ProcessedAt falls within Window of the first record of their group. The
// first copy is kept and Duplicates counts the later ones. A copy predicted
// under a different category starts its own group, so an amended report that
// changes category is never hidden. Records without a report number, or that
// failed, are passed through untouched.
func (d *Deduplicator) DeduplicateBatch(records []model.Record) []model.Record {
	if len(records) == 0 {
		return nil
	}

	var order []*group
	groups := make(map[string]*group)

	for _, r := range records {
		if r.ReportNumber == "" || r.Error != "" {
			order = append(order, &group{record: r, count: 1})
			continue
		}
		key := r.ReportNumber + "\x00" + r.Prediction.Category

		g, exists := groups[key]
		if exists && r.ProcessedAt.Sub(g.firstTS) <= d.cfg.Window {
			g.count++
			continue
		}

		// New group: either new key or outside window.
		g = &group{record: r, count: 1, firstTS: r.ProcessedAt}
		groups[key] = g
		order = append(order, g)
	}

	result := make([]model.Record, 0, len(order))
	for _, g := range order {
		r := g.record
		if g.count > 1 {
			r.Duplicates = g.count - 1
		}
		result = append(result, r)
	}
	return result
}
