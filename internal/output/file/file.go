// Package file appends prediction records to a local NDJSON file.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

const (
	defaultBufSize    = 64 * 1024
	defaultMaxBackups = 10
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize rotates the file once appending a record would take it past
// bytes. 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithMaxBackups sets how many rotated files ({path}.1 .. {path}.N) are kept.
// Default: 10.
func WithMaxBackups(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.maxBackups = n
		}
	}
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output appends one JSON line per record. Records are buffered until
// Close or rotation. Existing files are appended to.
type Output struct {
	path       string
	verbosity  compactor.Verbosity
	maxSize    int64
	maxBackups int
	bufSize    int

	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	size int64 // bytes in the current file, buffered included
}

// New opens (or creates) path and any missing parent directories.
func New(path string, verbosity compactor.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:       path,
		verbosity:  verbosity,
		maxBackups: defaultMaxBackups,
		bufSize:    defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file output: %w", err)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends record, trimmed to the output's verbosity.
func (o *Output) Write(_ context.Context, record model.Record) error {
	line, err := json.Marshal(output.FormatRecord(record, o.verbosity))
	if err != nil {
		return fmt.Errorf("file output: encode record %s: %w", record.ID, err)
	}
	line = append(line, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.full(len(line)) {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}
	n, err := o.buf.Write(line)
	o.size += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closeFile()
}

// full reports whether appending n bytes should start a new file. An empty
// file always takes the record, however large.
func (o *Output) full(n int) bool {
	return o.maxSize > 0 && o.size > 0 && o.size+int64(n) > o.maxSize
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.file = f
	o.buf = bufio.NewWriterSize(f, o.bufSize)
	o.size = info.Size()
	return nil
}

func (o *Output) closeFile() error {
	flushErr := o.buf.Flush()
	closeErr := o.file.Close()
	if flushErr != nil {
		return fmt.Errorf("file output: flush: %w", flushErr)
	}
	return closeErr
}

// rotate moves the current file to {path}.1, shifting older backups up and
// dropping the one past maxBackups, then opens a fresh file.
func (o *Output) rotate() error {
	if err := o.closeFile(); err != nil {
		return err
	}
	if err := removeIfExists(o.backup(o.maxBackups)); err != nil {
		return err
	}
	for i := o.maxBackups - 1; i >= 1; i-- {
		if err := renameIfExists(o.backup(i), o.backup(i+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(o.path, o.backup(1)); err != nil {
		return err
	}
	return o.open()
}

func (o *Output) backup(i int) string {
	return fmt.Sprintf("%s.%d", o.path, i)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func renameIfExists(from, to string) error {
	if err := os.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
