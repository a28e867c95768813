package blotter

// Tier lists the categories assigned one severity.
type Tier struct {
	Severity   int
	Categories []string
}

// SeverityTiers returns the severity table in tier order. This is
// read-only; consumers can inspect it but not modify it.
func (b *Blotter) SeverityTiers() []Tier {
	tiers := b.table.Tiers()
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		out[i] = Tier{Severity: int(t.Severity), Categories: t.Categories}
	}
	return out
}

// Severity returns the tier for category, and false when the category is
// not in the table.
func (b *Blotter) Severity(category string) (int, bool) {
	s := b.engine.Severity(category)
	return int(s), s.Known()
}
