package blotter

import (
	"encoding/json"
	"strconv"
)

// Prediction is the classification of one report.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Prediction struct {
	Category   string    `json:"category"`             // Predicted crime category
	Severity   int       `json:"severity"`             // 1-5, 0 (null in JSON) when the category has no tier
	Confidence float64   `json:"confidence,omitempty"` // Probability of Category
	Summary    string    `json:"summary,omitempty"`    // Shortened detailed description
	Fields     Fields    `json:"fields,omitempty"`     // Extracted report sections (full verbosity)
	Features   *Features `json:"features,omitempty"`   // Derived features (full verbosity)
}

// SeverityKnown reports whether the category has a severity tier.
func (p Prediction) SeverityKnown() bool {
	return p.Severity >= 1 && p.Severity <= 5
}

// SeverityLabel returns the tier as text, or "unknown".
func (p Prediction) SeverityLabel() string {
	if !p.SeverityKnown() {
		return "unknown"
	}
	return strconv.Itoa(p.Severity)
}

// MarshalJSON writes severity as null when the category has no tier, so
// consumers see "could not determine" rather than a zero tier.
func (p Prediction) MarshalJSON() ([]byte, error) {
	type plain Prediction
	out := struct {
		plain
		Severity *int `json:"severity"`
	}{plain: plain(p)}
	if p.SeverityKnown() {
		out.Severity = &p.Severity
	}
	return json.Marshal(out)
}

// Fields maps report section names (ReportNumber, DateTime,
// IncidentLocation, Coordinates, DetailedDescription, PoliceDistrict,
// Resolution) to their extracted text. Sections not found are absent.
type Fields map[string]string

// Features are the structured inputs derived from a report.
type Features struct {
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Hour           int    `json:"hour"`
	IsWeekend      bool   `json:"is_weekend"`
	PeakHour       bool   `json:"peak_hour"`
	AddressBlock   int    `json:"address_block"`
	GeoCluster     string `json:"geo_cluster"`
	PoliceDistrict string `json:"police_district"`
	DayOfWeek      string `json:"day_of_week"`
}
