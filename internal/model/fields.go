package model

import (
	"bytes"
	"encoding/json"
)

// Field names one of the labelled sections of an incident report.
type Field string

const (
	FieldReportNumber        Field = "ReportNumber"
	FieldDateTime            Field = "DateTime"
	FieldIncidentLocation    Field = "IncidentLocation"
	FieldCoordinates         Field = "Coordinates"
	FieldDetailedDescription Field = "DetailedDescription"
	FieldPoliceDistrict      Field = "PoliceDistrict"
	FieldResolution          Field = "Resolution"
)

// Fields lists every report field in template order.
var Fields = []Field{
	FieldReportNumber,
	FieldDateTime,
	FieldIncidentLocation,
	FieldCoordinates,
	FieldDetailedDescription,
	FieldPoliceDistrict,
	FieldResolution,
}

// FieldMap holds the extracted value of each field. A missing key means the
// field was not found in the report. Treat it as read-only once built.
type FieldMap map[Field]string

// Get returns the field value and whether it was extracted.
func (m FieldMap) Get(f Field) (string, bool) {
	v, ok := m[f]
	return v, ok
}

// Value returns the field value, or "" when unset.
func (m FieldMap) Value(f Field) string {
	return m[f]
}

// ValueOr returns the field value, or fallback when unset.
func (m FieldMap) ValueOr(f Field, fallback string) string {
	if v, ok := m[f]; ok {
		return v
	}
	return fallback
}

// MarshalJSON writes every field in template order, with null for unset ones.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(f))
		buf.Write(key)
		buf.WriteByte(':')
		v, ok := m[f]
		if !ok {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the format written by MarshalJSON. Null values stay unset.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FieldMap, len(raw))
	for k, v := range raw {
		if v != nil {
			out[Field(k)] = *v
		}
	}
	*m = out
	return nil
}
