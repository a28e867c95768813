// Package features converts extracted report fields into the feature
// vector consumed by the category model.
package features

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/blotter/internal/model"
)

// TextVectorizer transforms free text with a vocabulary fixed at training time.
type TextVectorizer interface {
	Transform(text string) ([]float32, error)
	Dim() int
}

// CategoricalEncoder transforms structured features with categories fixed
// at training time.
type CategoricalEncoder interface {
	Transform(s model.StructuredFeatures) ([]float32, error)
	Dim() int
}

// Derive computes the structured features for a FieldMap. It never fails;
// every feature falls back to its documented default.
func Derive(fields model.FieldMap, geo GeoBinning) model.StructuredFeatures {
	ts := ParseDateTime(fields.Value(model.FieldDateTime))
	return model.StructuredFeatures{
		Year:           ts.Year,
		Month:          ts.Month,
		Hour:           ts.Hour,
		IsWeekend:      IsWeekend(ts.DayOfWeek),
		PeakHour:       IsPeakHour(ts.Hour),
		AddressBlock:   AddressBlock(fields.Value(model.FieldIncidentLocation)),
		GeoCluster:     GeoCluster(fields.Value(model.FieldCoordinates), geo),
		PoliceDistrict: fields.ValueOr(model.FieldPoliceDistrict, model.Unknown),
		DayOfWeek:      ts.DayOfWeek,
	}
}

// Builder assembles feature vectors from fitted transforms.
type Builder struct {
	vectorizer TextVectorizer
	encoder    CategoricalEncoder
	geo        GeoBinning
}

// NewBuilder creates a Builder. All transforms must already be fitted.
func NewBuilder(vec TextVectorizer, enc CategoricalEncoder, geo GeoBinning) *Builder {
	return &Builder{vectorizer: vec, encoder: enc, geo: geo}
}

// Dim returns the width of every vector this builder produces.
func (b *Builder) Dim() int {
	return b.vectorizer.Dim() + b.encoder.Dim()
}

// Build derives, encodes and vectorizes fields into a FeatureVector.
// Transform failures and width mismatches are returned as *model.ContractError.
func (b *Builder) Build(fields model.FieldMap) (model.FeatureVector, error) {
	structured := Derive(fields, b.geo)

	encoded, err := b.encoder.Transform(structured)
	if err != nil {
		return model.FeatureVector{}, asContractError("encoder", err)
	}
	if len(encoded) != b.encoder.Dim() {
		return model.FeatureVector{}, &model.ContractError{Component: "encoder", Want: b.encoder.Dim(), Got: len(encoded)}
	}

	text, err := b.vectorizer.Transform(fields.Value(model.FieldDetailedDescription))
	if err != nil {
		return model.FeatureVector{}, asContractError("vectorizer", err)
	}
	if len(text) != b.vectorizer.Dim() {
		return model.FeatureVector{}, &model.ContractError{Component: "vectorizer", Want: b.vectorizer.Dim(), Got: len(text)}
	}

	return model.FeatureVector{
		Structured: structured,
		Text:       text,
		Encoded:    encoded,
	}, nil
}

func asContractError(component string, err error) error {
	var ce *model.ContractError
	if errors.As(err, &ce) {
		return ce
	}
	return &model.ContractError{Component: component, Detail: fmt.Sprint(err)}
}
