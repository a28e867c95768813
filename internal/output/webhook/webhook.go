// Package webhook posts batches of prediction records to an HTTP endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/crimson-sun/blotter/internal/engine/compactor"
	"github.com/crimson-sun/blotter/internal/httpclient"
	"github.com/crimson-sun/blotter/internal/model"
	"github.com/crimson-sun/blotter/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultRetries       = 3
	defaultRetryDelay    = time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) {
		for k, v := range h {
			o.clientOpts = append(o.clientOpts, httpclient.WithHeader(k, v))
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" with every POST.
func WithToken(token string) Option {
	return func(o *Output) { o.token = token }
}

// WithBatchSize sets the number of records accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithTimeout sets the per-attempt HTTP timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) { o.clientOpts = append(o.clientOpts, httpclient.WithTimeout(d)) }
}

// WithRetries sets how many times a batch is retried on 429 or 5xx and the
// first backoff delay. Default: 3 retries from 1s.
func WithRetries(n uint64, base time.Duration) Option {
	return func(o *Output) { o.clientOpts = append(o.clientOpts, httpclient.WithRetries(n, base)) }
}

// WithVerbosity sets how much of each record is posted. Default: Standard.
func WithVerbosity(v compactor.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithMinSeverity posts only records at or above tier s. Failed records and
// categories without a tier are skipped. Default: post everything.
func WithMinSeverity(s model.Severity) Option {
	return func(o *Output) { o.minSeverity = s }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Payload is the JSON body of one POST. MaxSeverity is the highest known
// tier in the batch, or null, so receivers can page on it without reading
// every record.
type Payload struct {
	SentAt      time.Time      `json:"sent_at"`
	Count       int            `json:"count"`
	MaxSeverity model.Severity `json:"max_severity"`
	Records     []model.Record `json:"records"`
}

// Output batches records and POSTs them as a Payload. A batch is sent when
// it reaches batchSize or flushInterval after its first record.
type Output struct {
	client        *httpclient.Client
	clientOpts    []httpclient.Option
	token         string
	verbosity     compactor.Verbosity
	minSeverity   model.Severity
	batchSize     int
	flushInterval time.Duration
	errFunc       func(error)
	now           func() time.Time

	mu      sync.Mutex
	pending []model.Record
	timer   *time.Timer
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{
		verbosity:     compactor.Standard,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
		now:           time.Now,
		clientOpts: []httpclient.Option{
			httpclient.WithTimeout(defaultTimeout),
			httpclient.WithRetries(defaultRetries, defaultRetryDelay),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.client = httpclient.New(url, o.token, o.clientOpts...)
	return o
}

// Write adds record to the current batch, sending it once full.
func (o *Output) Write(ctx context.Context, record model.Record) error {
	if !o.wanted(record) {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatRecord(record, o.verbosity))
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}
	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close flushes any remaining records and stops the timer.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) > 0 {
		return o.flushLocked(context.Background())
	}
	return nil
}

func (o *Output) wanted(r model.Record) bool {
	if o.minSeverity == model.SeverityUnknown {
		return true
	}
	return r.Error == "" && r.Prediction.Severity.Known() && r.Prediction.Severity >= o.minSeverity
}

// flushLocked posts the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if len(o.pending) == 0 {
		return nil
	}
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	batch := o.pending
	o.pending = nil

	body, err := json.Marshal(newPayload(batch, o.now()))
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	header := http.Header{"Content-Type": {"application/json"}}
	if _, err := o.client.Do(ctx, http.MethodPost, "", body, header); err != nil {
		return fmt.Errorf("webhook: post %d records: %w", len(batch), err)
	}
	return nil
}

func newPayload(records []model.Record, now time.Time) Payload {
	p := Payload{SentAt: now.UTC(), Count: len(records), Records: records}
	for _, r := range records {
		if sev := r.Prediction.Severity; sev.Known() && sev > p.MaxSeverity {
			p.MaxSeverity = sev
		}
	}
	return p
}
