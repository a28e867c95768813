package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/config"
)

func watchCmd(g *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the source directory and classify reports as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}
			return runWatch(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// runWatch streams reports until SIGINT or SIGTERM.
func runWatch(cmd *cobra.Command, cfg config.Config) error {
	if err := cfg.ValidateSource(); err != nil {
		return fmt.Errorf("invalid source configuration: %w", err)
	}
	a, err := newApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := newSource(cfg, a)
	if err != nil {
		return err
	}
	p := a.pipeline(src)
	defer p.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.recorder != nil {
		srv := a.recorder.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	a.logger.Info("blotter: watching",
		"version", config.Version,
		"source", cfg.Source.Provider,
		"path", cfg.Source.Path,
	)
	if err := p.Stream(ctx, sourceConfig(cfg)); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.logger.Info("blotter: stopped", "processed", p.Processed(), "failed", p.Failed())
	return nil
}
