// Package async decouples the pipeline from slow sinks such as a webhook or
// a database.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets how many records may wait for the sink. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback for sink failures. The error names the
// record and report. Default: log a warning.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write discard the record instead of blocking when
// the buffer is full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for buffered records.
// Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithLogger sets the logger for drop and drain warnings.
func WithLogger(l *slog.Logger) Option {
	return func(a *Async) { a.logger = l }
}

// Async queues records in memory and writes them to the wrapped output
// from a single background goroutine, so the sink sees records in order.
// Sink errors go to the error callback, never back to the caller.
type Async struct {
	inner        output.Output
	errFunc      func(error)
	logger       *slog.Logger
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool

	mu     sync.RWMutex // guards queue against close during send
	closed bool
	queue  chan model.Record
	done   chan struct{}

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New wraps inner and starts the background writer.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errFunc == nil {
		a.errFunc = func(err error) { a.logger.Warn("async output write error", "error", err) }
	}
	a.queue = make(chan model.Record, a.bufSize)
	a.done = make(chan struct{})
	go a.run()
	return a
}

// Write queues record. It blocks while the queue is full unless the
// wrapper drops on full, and gives up when ctx ends.
func (a *Async) Write(ctx context.Context, record model.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.queue <- record:
		default:
			a.dropped.Add(1)
			a.logger.Warn("async output buffer full, dropping record",
				"id", record.ID, "report_number", record.ReportNumber)
		}
		return nil
	}

	select {
	case a.queue <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting records, waits up to the drain timeout for the
// queue to empty, then closes the wrapped output. Safe to call twice.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(a.drainTimeout):
		a.logger.Warn("async output drain timed out", "pending", len(a.queue))
	}
	return a.inner.Close()
}

// Delivered returns how many records the sink accepted.
func (a *Async) Delivered() int64 { return a.delivered.Load() }

// Failed returns how many records the sink rejected.
func (a *Async) Failed() int64 { return a.failed.Load() }

// Dropped returns how many records were discarded on a full queue.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

func (a *Async) run() {
	defer close(a.done)
	for record := range a.queue {
		if err := a.inner.Write(context.Background(), record); err != nil {
			a.failed.Add(1)
			a.errFunc(fmt.Errorf("record %s (report %q): %w", record.ID, record.ReportNumber, err))
			continue
		}
		a.delivered.Add(1)
	}
}
