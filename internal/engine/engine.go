// Package engine runs a report through extraction, feature building,
// classification and severity lookup.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/blotter/internal/engine/artifacts"
	"github.com/crimson-sun/blotter/internal/engine/classifier"
	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/engine/extractor"
	"github.com/crimson-sun/blotter/internal/engine/features"
	"github.com/crimson-sun/blotter/internal/engine/severity"
	"github.com/crimson-sun/blotter/internal/model"
)

// Pipeline stages, as reported to a Recorder on failure.
const (
	StageFeatures = "features"
	StageClassify = "classify"
)

// Recorder observes engine outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObservePrediction(category string, sev model.Severity, elapsed time.Duration)
	ObserveFailure(stage string)
	ObserveMissingField(field model.Field)
}

type nopRecorder struct{}

func (nopRecorder) ObservePrediction(string, model.Severity, time.Duration) {}
func (nopRecorder) ObserveFailure(string)                                   {}
func (nopRecorder) ObserveMissingField(model.Field)                         {}

// Engine orchestrates the extract → features → classify → severity pipeline.
// All components are read-only after construction, so Process may be called
// from many goroutines.
type Engine struct {
	builder    *features.Builder
	classifier *classifier.Classifier
	table      *severity.Table
	logger     *slog.Logger
	recorder   Recorder
	workers    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-report diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithWorkers bounds ProcessBatch concurrency. Values below 1 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New creates an Engine with the provided components. The builder's output
// width must match the model input width.
func New(b *features.Builder, cls *classifier.Classifier, table *severity.Table, opts ...Option) (*Engine, error) {
	if b.Dim() != cls.InputDim() {
		return nil, &model.ArtifactError{
			Artifact: "model",
			Err:      fmt.Errorf("feature width %d != model input width %d", b.Dim(), cls.InputDim()),
		}
	}
	e := &Engine{
		builder:    b,
		classifier: cls,
		table:      table,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// FromArtifacts wires an Engine from a loaded artifact set.
func FromArtifacts(set *artifacts.Set, table *severity.Table, opts ...Option) (*Engine, error) {
	b := features.NewBuilder(set.Vectorizer, set.Encoder, set.Geo)
	return New(b, classifier.New(set.Model), table, opts...)
}

// Extract joins the report pages and pulls out the labelled fields.
func (e *Engine) Extract(r model.Report) model.FieldMap {
	return extractor.Extract(extractor.JoinPages(r.Pages))
}

// Severity looks up the tier for a category.
func (e *Engine) Severity(category string) model.Severity {
	return e.table.Lookup(category)
}

// Process classifies a single report. Missing fields are defaulted, never
// fatal; a contract violation with the fitted artifacts is returned as an
// error wrapping *model.ContractError.
func (e *Engine) Process(r model.Report) (model.Prediction, error) {
	start := time.Now()
	fields := e.Extract(r)

	if missing := extractor.Missing(fields); len(missing) > 0 {
		for _, f := range missing {
			e.recorder.ObserveMissingField(f)
		}
		e.logger.Debug("engine: fields missing, using defaults", "source", r.Source, "missing", missing)
	}

	vec, err := e.builder.Build(fields)
	if err != nil {
		e.recorder.ObserveFailure(StageFeatures)
		return model.Prediction{}, fmt.Errorf("engine: build features: %w", err)
	}

	res, err := e.classifier.Classify(vec.Values())
	if err != nil {
		e.recorder.ObserveFailure(StageClassify)
		return model.Prediction{}, fmt.Errorf("engine: classify: %w", err)
	}

	sev := e.table.Lookup(res.Category)
	if !sev.Known() {
		e.logger.Debug("engine: category has no severity tier", "category", res.Category)
	}
	e.recorder.ObservePrediction(res.Category, sev, time.Since(start))

	structured := vec.Structured
	return model.Prediction{
		Category:   res.Category,
		Severity:   sev,
		Confidence: res.Confidence,
		Summary:    compactor.Summarize(fields.Value(model.FieldDetailedDescription)),
		Fields:     fields,
		Features:   &structured,
	}, nil
}

// ProcessBatch classifies reports concurrently and returns predictions in
// input order. The first failure cancels the remaining work.
func (e *Engine) ProcessBatch(ctx context.Context, reports []model.Report) ([]model.Prediction, error) {
	if len(reports) == 0 {
		return nil, nil
	}

	out := make([]model.Prediction, len(reports))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, r := range reports {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := e.Process(r)
			if err != nil {
				return fmt.Errorf("report %d: %w", i, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
