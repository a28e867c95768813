// Package severity maps predicted crime categories to severity tiers.
package severity

import (
	"fmt"

	"github.com/crimson-sun/blotter/internal/model"
)

// Tier lists the categories assigned one severity.
type Tier struct {
	Severity   model.Severity
	Categories []string
}

// Table is an immutable category → severity lookup.
type Table struct {
	tiers  []Tier
	lookup map[string]model.Severity
}

var defaultTable = mustNew(DefaultTiers())

// Default returns the shared built-in table.
func Default() *Table {
	return defaultTable
}

// New builds a Table from tiers. A category may appear in only one tier and
// every tier must be between 1 and 5.
func New(tiers []Tier) (*Table, error) {
	t := &Table{lookup: make(map[string]model.Severity)}
	for _, tier := range tiers {
		if !tier.Severity.Known() {
			return nil, fmt.Errorf("severity: tier %d out of range 1-5", int(tier.Severity))
		}
		cats := make([]string, len(tier.Categories))
		copy(cats, tier.Categories)
		for _, c := range cats {
			if prev, dup := t.lookup[c]; dup {
				return nil, fmt.Errorf("severity: category %q in tiers %d and %d", c, int(prev), int(tier.Severity))
			}
			t.lookup[c] = tier.Severity
		}
		t.tiers = append(t.tiers, Tier{Severity: tier.Severity, Categories: cats})
	}
	return t, nil
}

func mustNew(tiers []Tier) *Table {
	t, err := New(tiers)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the tier for category, or model.SeverityUnknown when the
// category is not in the table. Matching is exact.
func (t *Table) Lookup(category string) model.Severity {
	return t.lookup[category]
}

// Tiers returns a copy of the table contents in tier order.
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	for i, tier := range t.tiers {
		cats := make([]string, len(tier.Categories))
		copy(cats, tier.Categories)
		out[i] = Tier{Severity: tier.Severity, Categories: cats}
	}
	return out
}

// Len returns the number of categories in the table.
func (t *Table) Len() int {
	return len(t.lookup)
}
