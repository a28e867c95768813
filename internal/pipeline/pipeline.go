// Package pipeline connects a report source, the engine, and an output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/blotter/internal/engine/dedup"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
	"github.com/crimson-sun/blotter/internal/source"
)

// Processor turns reports into predictions. *engine.Engine implements it.
type Processor interface {
	Process(r model.Report) (model.Prediction, error)
	ProcessBatch(ctx context.Context, reports []model.Report) ([]model.Prediction, error)
}

// Pipeline connects a source, processor, and output into a processing pipeline.
type Pipeline struct {
	source    source.Source
	processor Processor
	output    output.Output
	logger    *slog.Logger

	dedup         *dedup.Deduplicator
	window        time.Duration
	maxBufferSize int

	now       func() time.Time
	processed atomic.Int64
	failed    atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDedup folds repeated copies of a report in stream mode. Records are
// buffered for window before being written.
func WithDedup(d *dedup.Deduplicator, window time.Duration) Option {
	return func(p *Pipeline) {
		p.dedup = d
		p.window = window
	}
}

// WithMaxBufferSize forces a flush once this many records are buffered.
// 0 means unlimited.
func WithMaxBufferSize(n int) Option {
	return func(p *Pipeline) { p.maxBufferSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline from the given components.
func New(src source.Source, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    src,
		processor: proc,
		output:    out,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Processed returns how many reports produced a prediction.
func (p *Pipeline) Processed() int64 { return p.processed.Load() }

// Failed returns how many reports failed in stream mode.
func (p *Pipeline) Failed() int64 { return p.failed.Load() }

// Stream starts the pipeline in streaming mode, processing reports as they
// arrive. A report that fails is written as a record with Error set.
// Blocks until the context is cancelled or the source closes its channel.
func (p *Pipeline) Stream(ctx context.Context, cfg source.Config) error {
	ch, err := p.source.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	if p.dedup == nil {
		return p.streamDirect(ctx, ch)
	}
	return p.streamWithDedup(ctx, ch)
}

func (p *Pipeline) streamDirect(ctx context.Context, ch <-chan model.Report) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.output.Write(ctx, p.processOne(r)); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
		}
	}
}

func (p *Pipeline) streamWithDedup(ctx context.Context, ch <-chan model.Report) error {
	buf := newHoldBuffer(p.dedup, p.window, p.maxBufferSize)
	for {
		select {
		case <-ctx.Done():
			// Deliver what is held before shutting down.
			if err := p.writeAll(context.WithoutCancel(ctx), buf.release()); err != nil {
				p.logger.Warn("pipeline final flush failed", "error", err)
			}
			return ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return p.writeAll(ctx, buf.release())
			}
			rec := p.processOne(r)
			if !foldable(rec) {
				if err := p.output.Write(ctx, rec); err != nil {
					return fmt.Errorf("pipeline output: %w", err)
				}
				continue
			}
			if buf.hold(rec) {
				if err := p.writeAll(ctx, buf.release()); err != nil {
					return err
				}
			}
		case <-buf.expired():
			if err := p.writeAll(ctx, buf.release()); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) writeAll(ctx context.Context, records []model.Record) error {
	for _, rec := range records {
		if err := p.output.Write(ctx, rec); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

// processOne classifies one report. Failures become error records.
func (p *Pipeline) processOne(r model.Report) model.Record {
	pred, err := p.processor.Process(r)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("report failed", "source", r.Source, "error", err)
		rec := p.newRecord(r, model.Prediction{})
		rec.Error = err.Error()
		return rec
	}
	p.processed.Add(1)
	return p.newRecord(r, pred)
}

// Query runs the pipeline in one-shot query mode. The first report that
// fails aborts the run before anything is written.
func (p *Pipeline) Query(ctx context.Context, cfg source.Config, params source.QueryParams) error {
	reports, err := p.source.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	preds, err := p.processor.ProcessBatch(ctx, reports)
	if err != nil {
		return fmt.Errorf("pipeline process batch: %w", err)
	}
	p.processed.Add(int64(len(preds)))

	records := make([]model.Record, len(preds))
	for i, pred := range preds {
		records[i] = p.newRecord(reports[i], pred)
	}
	if p.dedup != nil {
		records = p.dedup.DeduplicateBatch(records)
	}

	if err := p.writeAll(ctx, records); err != nil {
		return err
	}
	p.logger.Info("query complete", "reports", len(reports), "records", len(records))
	return nil
}

func (p *Pipeline) newRecord(r model.Report, pred model.Prediction) model.Record {
	return model.Record{
		ID:           uuid.NewString(),
		Source:       r.Source,
		ReportNumber: pred.Fields.Value(model.FieldReportNumber),
		ProcessedAt:  p.now().UTC(),
		Prediction:   pred,
	}
}

// Close reports counters and shuts down the output.
func (p *Pipeline) Close() error {
	if n := p.failed.Load(); n > 0 {
		p.logger.Warn("pipeline closed with failed reports", "failed", n, "processed", p.processed.Load())
	}
	return p.output.Close()
}
