package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/config"
	"github.com/crimson-sun/blotter/internal/engine"
	"github.com/crimson-sun/blotter/internal/engine/artifacts"
	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/engine/dedup"
	"github.com/crimson-sun/blotter/internal/engine/severity"
	"github.com/crimson-sun/blotter/internal/logging"
	"github.com/crimson-sun/blotter/internal/metrics"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
	"github.com/crimson-sun/blotter/internal/output/async"
	"github.com/crimson-sun/blotter/internal/output/file"
	"github.com/crimson-sun/blotter/internal/output/multi"
	"github.com/crimson-sun/blotter/internal/output/mysql"
	"github.com/crimson-sun/blotter/internal/output/stdout"
	"github.com/crimson-sun/blotter/internal/output/webhook"
	"github.com/crimson-sun/blotter/internal/pipeline"
	"github.com/crimson-sun/blotter/internal/source"
)

// app holds the components shared by the classify and watch commands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	verbosity compactor.Verbosity
	artifacts *artifacts.Set
	engine    *engine.Engine
	recorder  *metrics.Recorder // nil unless a metrics address is set
	output    output.Output
}

func newApp(cmd *cobra.Command, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := logging.ResolveFormat(cfg.Log.Format, cfg.Output.Format == "stdout")
	if err != nil {
		return nil, err
	}
	logger := logging.Init(cmd.ErrOrStderr(), format, logging.ParseLevel(cfg.Log.Level))

	verbosity, err := compactor.ParseVerbosity(cfg.Engine.Verbosity)
	if err != nil {
		return nil, err
	}

	set, err := artifacts.Load(cfg.Artifacts.Path(), artifacts.Options{
		RuntimeLibrary: cfg.Artifacts.ORTLibrary,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, verbosity: verbosity, artifacts: set}

	opts := []engine.Option{engine.WithLogger(logger), engine.WithWorkers(cfg.Engine.Workers)}
	if cfg.Metrics.Addr != "" {
		a.recorder = metrics.New()
		opts = append(opts, engine.WithRecorder(a.recorder))
	}
	a.engine, err = engine.FromArtifacts(set, severity.Default(), opts...)
	if err != nil {
		set.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	a.output, err = buildOutputs(cmd.Context(), cmd.OutOrStdout(), cfg, verbosity, logger)
	if err != nil {
		set.Close()
		return nil, err
	}
	return a, nil
}

// pipeline builds a pipeline over src writing to the configured outputs.
// Closing the pipeline closes the outputs.
func (a *app) pipeline(src source.Source) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMaxBufferSize(a.cfg.Engine.MaxBufferSize),
	}
	if w := a.cfg.Engine.DedupWindow; w > 0 {
		opts = append(opts, pipeline.WithDedup(dedup.New(dedup.Config{Window: w}), w))
	}
	return pipeline.New(src, a.engine, a.output, opts...)
}

// Close releases the model runtime.
func (a *app) Close() error {
	return a.artifacts.Close()
}

// buildOutputs fans records out to stdout and every configured sink. Network
// sinks are wrapped in async so a slow endpoint does not stall classification.
func buildOutputs(ctx context.Context, w io.Writer, cfg config.Config, v compactor.Verbosity, logger *slog.Logger) (output.Output, error) {
	var outs []output.Output
	fail := func(err error) (output.Output, error) {
		var errs []error
		for _, o := range outs {
			errs = append(errs, o.Close())
		}
		return nil, errors.Join(append([]error{err}, errs...)...)
	}

	if cfg.Output.Format == "stdout" {
		outs = append(outs, stdout.NewWriter(w, v, cfg.Output.Pretty))
	}

	if cfg.Output.FilePath != "" {
		var opts []file.Option
		if cfg.Output.FileMaxSize > 0 {
			opts = append(opts, file.WithMaxSize(cfg.Output.FileMaxSize))
		}
		f, err := file.New(cfg.Output.FilePath, v, opts...)
		if err != nil {
			return fail(fmt.Errorf("file output: %w", err))
		}
		outs = append(outs, f)
	}

	asyncOpts := func(sink string) []async.Option {
		opts := []async.Option{
			async.WithLogger(logger),
			async.WithOnError(func(err error) {
				logger.Error("output write failed", "sink", sink, "error", err)
			}),
		}
		if cfg.ShutdownTimeout > 0 {
			opts = append(opts, async.WithDrainTimeout(cfg.ShutdownTimeout))
		}
		return opts
	}

	if cfg.Output.WebhookURL != "" {
		wh := webhook.New(cfg.Output.WebhookURL,
			webhook.WithToken(cfg.Output.WebhookAuth),
			webhook.WithVerbosity(v),
			webhook.WithMinSeverity(model.Severity(cfg.Output.WebhookMinSeverity)),
			webhook.WithOnError(func(err error) {
				logger.Error("webhook flush failed", "error", err)
			}),
		)
		outs = append(outs, async.New(wh, asyncOpts("webhook")...))
	}

	if cfg.Output.MySQLDSN != "" {
		db, err := mysql.Open(ctx, cfg.Output.MySQLDSN,
			mysql.WithTable(cfg.Output.MySQLTable),
			mysql.WithLogger(logger),
		)
		if err != nil {
			return fail(fmt.Errorf("mysql output: %w", err))
		}
		outs = append(outs, async.New(db, asyncOpts("mysql")...))
	}

	return multi.New(outs...), nil
}

func sourceConfig(cfg config.Config) source.Config {
	return source.Config{
		Provider: cfg.Source.Provider,
		Path:     cfg.Source.Path,
		Extra:    cfg.Source.Extra(),
	}
}
