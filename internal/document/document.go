// Package document turns report files into page text.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnsupported is returned for files no extractor handles.
var ErrUnsupported = errors.New("unsupported document type")

// Extractor returns the text of each page of a document.
type Extractor interface {
	Extract(ctx context.Context, name string, r io.Reader) ([]string, error)
}

// Registry picks an extractor by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry that reads .txt files as plain text.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".txt", Text{})
	return r
}

// Register maps an extension (with or without the dot) to e.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[normalizeExt(filepath.Ext(name))]
	return ok
}

// Extract reads the pages of the named document.
func (r *Registry) Extract(ctx context.Context, name string, rd io.Reader) ([]string, error) {
	e, ok := r.byExt[normalizeExt(filepath.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	return e.Extract(ctx, name, rd)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Text reads UTF-8 text. Form feeds separate pages.
type Text struct{}

func (Text) Extract(_ context.Context, _ string, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return SplitPages(string(data)), nil
}

// SplitPages splits text on form feeds, dropping a trailing empty page.
func SplitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
