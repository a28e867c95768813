package model

import "strconv"

// Unknown is the placeholder for categorical values that could not be derived.
const Unknown = "Unknown"

// StructuredColumns is the column order the categorical encoder was fitted on.
var StructuredColumns = []string{
	"Year",
	"Month",
	"Hour",
	"IsWeekend",
	"PeakHour",
	"AddressBlock",
	"GeoCluster",
	"PdDistrict",
	"DayOfWeek",
}

// StructuredFeatures are the temporal, spatial and categorical features
// derived from a FieldMap.
type StructuredFeatures struct {
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Hour           int    `json:"hour"`
	IsWeekend      int    `json:"is_weekend"`
	PeakHour       int    `json:"peak_hour"`
	AddressBlock   int    `json:"address_block"`
	GeoCluster     string `json:"geo_cluster"`
	PoliceDistrict string `json:"police_district"`
	DayOfWeek      string `json:"day_of_week"`
}

// Column returns the encoder input value for the named column as a string,
// matching how categories are stored in the fitted encoder.
func (s StructuredFeatures) Column(name string) (string, bool) {
	switch name {
	case "Year":
		return strconv.Itoa(s.Year), true
	case "Month":
		return strconv.Itoa(s.Month), true
	case "Hour":
		return strconv.Itoa(s.Hour), true
	case "IsWeekend":
		return strconv.Itoa(s.IsWeekend), true
	case "PeakHour":
		return strconv.Itoa(s.PeakHour), true
	case "AddressBlock":
		return strconv.Itoa(s.AddressBlock), true
	case "GeoCluster":
		return s.GeoCluster, true
	case "PdDistrict":
		return s.PoliceDistrict, true
	case "DayOfWeek":
		return s.DayOfWeek, true
	}
	return "", false
}

// FeatureVector is the classifier input: a text block from the vectorizer
// and an encoded block from the categorical encoder.
type FeatureVector struct {
	Structured StructuredFeatures `json:"structured"`
	Text       []float32          `json:"-"`
	Encoded    []float32          `json:"-"`
}

// Len returns the total width of the vector.
func (v FeatureVector) Len() int {
	return len(v.Text) + len(v.Encoded)
}

// Values returns the text block followed by the encoded block.
func (v FeatureVector) Values() []float32 {
	out := make([]float32, 0, v.Len())
	out = append(out, v.Text...)
	return append(out, v.Encoded...)
}
