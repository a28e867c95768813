package pipeline

import (
	"time"

	"github.com/crimson-sun/blotter/internal/engine/dedup"
	"github.com/crimson-sun/blotter/internal/model"
)

// holdBuffer keeps classified records for one dedup window so a report
// submitted several times (rescans, re-uploads) leaves a single record.
// It is owned by the stream loop and not safe for concurrent use.
type holdBuffer struct {
	dedup   *dedup.Deduplicator
	window  time.Duration
	maxSize int // 0 means unlimited

	held  []model.Record
	timer *time.Timer
}

func newHoldBuffer(d *dedup.Deduplicator, window time.Duration, maxSize int) *holdBuffer {
	if window <= 0 {
		window = d.Window()
	}
	t := time.NewTimer(window)
	t.Stop()
	return &holdBuffer{dedup: d, window: window, maxSize: maxSize, timer: t}
}

// hold adds r. The window opens with the first held record. It reports
// whether the buffer has reached its size limit.
func (b *holdBuffer) hold(r model.Record) bool {
	if len(b.held) == 0 {
		b.timer.Reset(b.window)
	}
	b.held = append(b.held, r)
	return b.maxSize > 0 && len(b.held) >= b.maxSize
}

// expired fires when the window of the oldest held record closes. It is
// nil while nothing is held.
func (b *holdBuffer) expired() <-chan time.Time {
	if len(b.held) == 0 {
		return nil
	}
	return b.timer.C
}

// release empties the buffer and returns its records with repeat copies
// folded together.
func (b *holdBuffer) release() []model.Record {
	if len(b.held) == 0 {
		return nil
	}
	b.timer.Stop()
	out := b.dedup.DeduplicateBatch(b.held)
	b.held = nil
	return out
}

// foldable reports whether r can be matched against other copies. Failed
// reports and reports without a number cannot.
func foldable(r model.Record) bool {
	return r.Error == "" && r.ReportNumber != ""
}
