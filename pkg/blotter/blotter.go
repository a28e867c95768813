package blotter

import (
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/blotter/internal/engine"
	"github.com/crimson-sun/blotter/internal/engine/artifacts"
	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/engine/severity"
	"github.com/crimson-sun/blotter/internal/model"
)

// Blotter is an incident report classifier.
// Safe for concurrent use.
type Blotter struct {
	engine    *engine.Engine
	artifacts *artifacts.Set
	table     *severity.Table
	compactor *compactor.Compactor
}

// New creates a Blotter instance, loading and cross-checking the fitted
// artifacts. Create once, reuse across requests.
func New(opts ...Option) (*Blotter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	verbosity, err := compactor.ParseVerbosity(o.verbosity)
	if err != nil {
		return nil, fmt.Errorf("blotter: %w", err)
	}

	set, err := artifacts.Load(o.artifactPath(), artifacts.Options{
		RuntimeLibrary: o.runtimeLibrary,
		Logger:         o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("blotter: %w", err)
	}

	table := severity.Default()
	eng, err := engine.FromArtifacts(set, table,
		engine.WithLogger(o.logger),
		engine.WithWorkers(o.workers),
	)
	if err != nil {
		set.Close()
		return nil, fmt.Errorf("blotter: %w", err)
	}

	return &Blotter{
		engine:    eng,
		artifacts: set,
		table:     table,
		compactor: compactor.New(verbosity),
	}, nil
}

// Classify classifies the text of a single report.
func (b *Blotter) Classify(text string) (Prediction, error) {
	return b.ClassifyPages([]string{text})
}

// ClassifyPages classifies a report given as separate pages, which are
// joined in order before extraction.
func (b *Blotter) ClassifyPages(pages []string) (Prediction, error) {
	p, err := b.engine.Process(model.Report{ReceivedAt: time.Now(), Pages: pages})
	if err != nil {
		return Prediction{}, err
	}
	return b.convert(p), nil
}

// ClassifyBatch classifies many report texts concurrently. Results are in
// input order; the first failure cancels the batch.
func (b *Blotter) ClassifyBatch(ctx context.Context, texts []string) ([]Prediction, error) {
	reports := make([]Report, len(texts))
	for i, t := range texts {
		reports[i] = Report{Pages: []string{t}}
	}
	return b.ClassifyReports(ctx, reports)
}

// ClassifyReports classifies a batch of reports with page boundaries and
// provenance.
func (b *Blotter) ClassifyReports(ctx context.Context, reports []Report) ([]Prediction, error) {
	in := make([]model.Report, len(reports))
	now := time.Now()
	for i, r := range reports {
		ts := r.ReceivedAt
		if ts.IsZero() {
			ts = now
		}
		in[i] = model.Report{
			ReceivedAt: ts,
			Source:     r.Source,
			Pages:      r.Pages,
			Metadata:   r.Metadata,
		}
	}
	preds, err := b.engine.ProcessBatch(ctx, in)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(preds))
	for i, p := range preds {
		out[i] = b.convert(p)
	}
	return out, nil
}

// Extract returns the labelled sections found in text without classifying it.
func (b *Blotter) Extract(text string) Fields {
	return fieldsFromModel(b.engine.Extract(model.Report{Pages: []string{text}}))
}

// Close releases model resources (ONNX runtime sessions).
// Must be called when the Blotter instance is no longer needed.
func (b *Blotter) Close() error {
	return b.artifacts.Close()
}

// convert applies the configured verbosity and maps the internal
// prediction to the public type.
func (b *Blotter) convert(p model.Prediction) Prediction {
	p = b.compactor.Compact(p)
	out := Prediction{
		Category:   p.Category,
		Severity:   int(p.Severity),
		Confidence: p.Confidence,
		Summary:    p.Summary,
	}
	if p.Fields != nil {
		out.Fields = fieldsFromModel(p.Fields)
	}
	if f := p.Features; f != nil {
		out.Features = &Features{
			Year:           f.Year,
			Month:          f.Month,
			Hour:           f.Hour,
			IsWeekend:      f.IsWeekend == 1,
			PeakHour:       f.PeakHour == 1,
			AddressBlock:   f.AddressBlock,
			GeoCluster:     f.GeoCluster,
			PoliceDistrict: f.PoliceDistrict,
			DayOfWeek:      f.DayOfWeek,
		}
	}
	return out
}

func fieldsFromModel(fm model.FieldMap) Fields {
	out := make(Fields, len(fm))
	for f, v := range fm {
		out[string(f)] = v
	}
	return out
}
