package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/blotter/internal/config"
	"github.com/crimson-sun/blotter/internal/document"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/source"
	"github.com/crimson-sun/blotter/internal/source/dir"
)

// queryFlags filter a one-shot run over the configured source.
type queryFlags struct {
	since   time.Duration
	limit   int
	pattern string
}

func classifyCmd(g *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "classify [files...]",
		Short: "Classify report files and print one record per report",
		Long: `Classify reads each file (or stdin for "-"), classifies it and writes one
NDJSON record per report. Without arguments it classifies the reports
under BLOTTER_SOURCE_PATH once and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return runQuery(cmd, cfg, q)
			}
			return runFiles(cmd, cfg, args)
		},
	}

	cmd.Flags().DurationVar(&q.since, "since", 0, "Only reports modified within this long (source mode)")
	cmd.Flags().IntVar(&q.limit, "limit", 0, "Stop after this many reports (source mode)")
	cmd.Flags().StringVar(&q.pattern, "pattern", "", "Doublestar glob relative to the source path (source mode)")
	return cmd
}

// runQuery classifies what the configured source holds right now.
func runQuery(cmd *cobra.Command, cfg config.Config, q queryFlags) error {
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

	params := source.QueryParams{Limit: q.limit, Pattern: q.pattern}
	if params.Pattern == "" {
		params.Pattern = cfg.Source.Pattern
	}
	if q.since > 0 {
		params.Since = time.Now().Add(-q.since)
	}

	p := a.pipeline(src)
	err = p.Query(cmd.Context(), sourceConfig(cfg), params)
	return errors.Join(err, p.Close())
}

// runFiles classifies the named files, in argument order.
func runFiles(cmd *cobra.Command, cfg config.Config, paths []string) error {
	a, err := newApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	src := &fileSource{
		paths: paths,
		stdin: cmd.InOrStdin(),
		docs:  document.RegistryFor(cfg.Source.TikaURL),
	}
	p := a.pipeline(src)
	err = p.Query(cmd.Context(), source.Config{Provider: "files"}, source.QueryParams{})
	return errors.Join(err, p.Close())
}

// newSource resolves the configured provider. The directory source is built
// directly so it picks up the configured logger and debounce.
func newSource(cfg config.Config, a *app) (source.Source, error) {
	if cfg.Source.Provider == "dir" {
		return dir.New(dir.WithLogger(a.logger), dir.WithDebounce(cfg.Source.Debounce)), nil
	}
	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

// fileSource serves a fixed list of files given on the command line.
type fileSource struct {
	paths []string
	stdin io.Reader
	docs  *document.Registry
}

func (s *fileSource) Query(ctx context.Context, _ source.Config, _ source.QueryParams) ([]model.Report, error) {
	reports := make([]model.Report, 0, len(s.paths))
	for _, path := range s.paths {
		pages, err := readPages(ctx, s.docs, path, s.stdin)
		if err != nil {
			return nil, err
		}
		reports = append(reports, model.Report{
			ReceivedAt: time.Now(),
			Source:     path,
			Pages:      pages,
		})
	}
	return reports, nil
}

func (s *fileSource) Stream(context.Context, source.Config) (<-chan model.Report, error) {
	return nil, errors.New("files: streaming is not supported")
}

// readPages returns the pages of path, or of stdin when path is "-".
func readPages(ctx context.Context, docs *document.Registry, path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return document.SplitPages(string(data)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return docs.Extract(ctx, path, f)
}
