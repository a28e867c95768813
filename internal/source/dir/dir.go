// Package dir reads incident reports from a directory tree. Query globs the
// tree once; Stream watches it and emits each new or changed file.
package dir

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/crimson-sun/blotter/internal/document"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/source"
)

const (
	defaultPattern  = "**/*"
	defaultDebounce = 500 * time.Millisecond
	eventBuffer     = 64
)

func init() {
	source.Register("dir", func() source.Source {
		return New()
	})
}

// Source implements source.Source over a local directory.
type Source struct {
	docs     *document.Registry
	logger   *slog.Logger
	debounce time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithDocuments sets the extractor registry. Without it the registry is
// built per call from the config: plain text always, and Tika formats when
// Extra["tika_url"] is set.
func WithDocuments(r *document.Registry) Option {
	return func(s *Source) { s.docs = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithDebounce sets how long file events are collected before processing.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) { s.debounce = d }
}

// New creates a directory source.
func New(opts ...Option) *Source {
	s := &Source{logger: slog.Default(), debounce: defaultDebounce}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) documents(cfg source.Config) *document.Registry {
	if s.docs != nil {
		return s.docs
	}
	return document.RegistryFor(cfg.Extra["tika_url"])
}

// Query reads every supported file under cfg.Path matching params.Pattern
// (default "**/*"), modified within [Since, Until), in path order.
func (s *Source) Query(ctx context.Context, cfg source.Config, params source.QueryParams) ([]model.Report, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("dir: path is required")
	}
	docs := s.documents(cfg)

	pattern := params.Pattern
	if pattern == "" {
		pattern = defaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("dir: invalid pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(cfg.Path), pattern)
	if err != nil {
		return nil, fmt.Errorf("dir: glob: %w", err)
	}
	slices.Sort(matches)

	var reports []model.Report
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(cfg.Path, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !docs.Supports(path) {
			continue
		}
		if !params.Since.IsZero() && info.ModTime().Before(params.Since) {
			continue
		}
		if !params.Until.IsZero() && !info.ModTime().Before(params.Until) {
			continue
		}

		r, _, err := readReport(ctx, docs, path, rel, info)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
		if params.Limit > 0 && len(reports) >= params.Limit {
			break
		}
	}
	return reports, nil
}

// Stream watches cfg.Path recursively and emits a report for each supported
// file that is created or whose content changes. Events are debounced so a
// file written in several chunks is read once.
func (s *Source) Stream(ctx context.Context, cfg source.Config) (<-chan model.Report, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("dir: path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dir: watcher: %w", err)
	}
	w := &watcher{
		src:     s,
		root:    cfg.Path,
		docs:    s.documents(cfg),
		fsw:     fsw,
		pending: make(map[string]struct{}),
		hashes:  make(map[string]string),
		out:     make(chan model.Report, eventBuffer),
	}
	if err := w.addRecursive(cfg.Path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("dir: watch %s: %w", cfg.Path, err)
	}

	go w.run(ctx)

	s.logger.Info("dir: watching for reports",
		"path", cfg.Path,
		"debounce", s.debounce,
		"extensions", w.docs.Extensions())
	return w.out, nil
}

type watcher struct {
	src  *Source
	root string
	docs *document.Registry
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}

	hashes map[string]string // path → content hash of the last emitted report
	out    chan model.Report
}

func (w *watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.out)
	defer w.fsw.Close()

	ticker := time.NewTicker(w.src.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.src.logger.Error("dir: watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !strings.HasPrefix(filepath.Base(event.Name), ".") {
			if err := w.addRecursive(event.Name); err != nil {
				w.src.logger.Warn("dir: failed to watch new directory", "path", event.Name, "error", err)
			}
		}
		return
	}
	if !w.docs.Supports(event.Name) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
}

func (w *watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	slices.Sort(paths)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}

		r, hash, err := readReport(ctx, w.docs, path, filepath.ToSlash(rel), info)
		if err != nil {
			w.src.logger.Warn("dir: failed to read report", "path", rel, "error", err)
			continue
		}
		if w.hashes[path] == hash {
			continue
		}
		w.hashes[path] = hash

		select {
		case w.out <- r:
		case <-ctx.Done():
			return
		}
	}
}

// readReport extracts the pages of one file and returns them with a hash
// of the raw bytes.
func readReport(ctx context.Context, docs *document.Registry, path, rel string, info fs.FileInfo) (model.Report, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Report{}, "", fmt.Errorf("dir: read %s: %w", rel, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	pages, err := docs.Extract(ctx, path, bytes.NewReader(data))
	if err != nil {
		return model.Report{}, "", fmt.Errorf("dir: extract %s: %w", rel, err)
	}
	return model.Report{
		ReceivedAt: info.ModTime(),
		Source:     rel,
		Pages:      pages,
		Metadata: map[string]any{
			"path":   path,
			"size":   info.Size(),
			"sha256": hash,
		},
	}, hash, nil
}
