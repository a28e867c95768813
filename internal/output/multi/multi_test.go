package multi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crimson-sun/blotter/internal/model"
)

// mockOutput records calls for test assertions.
type mockOutput struct {
	records []model.Record
	closed  bool
	err     error // if set, Write and Close return this error
}

func (m *mockOutput) Write(_ context.Context, r model.Record) error {
	m.records = append(m.records, r)
	return m.err
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.err
}

func testRecord(category string) model.Record {
	return model.Record{
		ID:          "rec-1",
		ProcessedAt: time.Now(),
		Prediction:  model.Prediction{Category: category, Severity: 2},
	}
}

func TestFanOutDeliversToAll(t *testing.T) {
	a := &mockOutput{}
	b := &mockOutput{}
	c := &mockOutput{}
	m := New(a, b, c)

	if err := m.Write(context.Background(), testRecord("VANDALISM")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, out := range []*mockOutput{a, b, c} {
		if len(out.records) != 1 {
			t.Fatalf("output %d: got %d records, want 1", i, len(out.records))
		}
		if out.records[0].Prediction.Category != "VANDALISM" {
			t.Errorf("output %d: got category %q, want VANDALISM", i, out.records[0].Prediction.Category)
		}
	}
}

func TestErrorDoesNotPreventDelivery(t *testing.T) {
	diskFull := errors.New("disk full")
	failing := &mockOutput{err: diskFull}
	healthy := &mockOutput{}
	m := New(failing, healthy)

	err := m.Write(context.Background(), testRecord("ARSON"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected joined error to wrap disk full, got %v", err)
	}

	if len(healthy.records) != 1 {
		t.Fatalf("healthy output got %d records, want 1", len(healthy.records))
	}
	if len(failing.records) != 1 {
		t.Fatalf("failing output got %d records, want 1", len(failing.records))
	}
}

func TestNilOutputsSkipped(t *testing.T) {
	inner := &mockOutput{}
	m := New(nil, inner, nil)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if err := m.Write(context.Background(), testRecord("TRESPASS")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCloseCallsAllOutputs(t *testing.T) {
	a := &mockOutput{}
	b := &mockOutput{}
	m := New(a, b)

	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.closed || !b.closed {
		t.Errorf("Close not called on all outputs: a=%v b=%v", a.closed, b.closed)
	}
}

func TestCloseCollectsErrors(t *testing.T) {
	a := &mockOutput{err: errors.New("err-a")}
	b := &mockOutput{err: errors.New("err-b")}
	m := New(a, b)

	if err := m.Close(); err == nil {
		t.Fatal("expected error, got nil")
	}
	if !a.closed || !b.closed {
		t.Error("Close should be called on all outputs even when errors occur")
	}
}
