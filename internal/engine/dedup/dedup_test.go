package dedup

import (
	"testing"
	"time"

	"github.com/crimson-sun/blotter/internal/model"
)

var t0 = time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

func record(number, category string, offset time.Duration) model.Record {
	return model.Record{
		ID:           number + "@" + offset.String(),
		ReportNumber: number,
		ProcessedAt:  t0.Add(offset),
		Prediction:   model.Prediction{Category: category, Severity: 2},
	}
}

func TestDeduplicateBatchEmpty(t *testing.T) {
	d := New(Config{Window: 5 * time.Second})
	if result := d.DeduplicateBatch(nil); result != nil {
		t.Fatalf("expected nil, got %v", result)
	}
}

func TestDefaultWindow(t *testing.T) {
	if got := New(Config{}).Window(); got != DefaultWindow {
		t.Fatalf("Window() = %v, want %v", got, DefaultWindow)
	}
}

func TestDeduplicateBatchNoDuplicates(t *testing.T) {
	d := New(Config{Window: 5 * time.Second})
	records := []model.Record{
		record("230514-0001", "ARSON", 0),
		record("230514-0002", "ARSON", time.Second),
		record("230514-0003", "VANDALISM", 2*time.Second),
	}
	result := d.DeduplicateBatch(records)
	if len(result) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result))
	}
	for _, r := range result {
		if r.Duplicates != 0 {
			t.Fatalf("expected Duplicates=0 for distinct report, got %d", r.Duplicates)
		}
	}
}

func TestDeduplicateBatchFirstCopyKept(t *testing.T) {
	d := New(Config{Window: 5 * time.Second})
	records := []model.Record{
		record("230514-0001", "TRESPASS", 0),
		record("230514-0002", "ARSON", 500*time.Millisecond),
		record("230514-0001", "TRESPASS", time.Second),
		record("230514-0001", "TRESPASS", 2*time.Second),
	}

	result := d.DeduplicateBatch(records)
	if len(result) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result))
	}
	first := result[0]
	if first.ReportNumber != "230514-0001" || first.Duplicates != 2 {
		t.Fatalf("first = %s x%d, want 230514-0001 x2", first.ReportNumber, first.Duplicates)
	}
	if first.ID != records[0].ID {
		t.Errorf("expected the first copy to be kept, got %s", first.ID)
	}
	if result[1].ReportNumber != "230514-0002" {
		t.Errorf("expected second record 230514-0002, got %s", result[1].ReportNumber)
	}
}

func TestDeduplicateBatchCategoryChangeNotFolded(t *testing.T) {
	d := New(Config{Window: 5 * time.Second})
	records := []model.Record{
		record("230514-0001", "TRESPASS", 0),
		record("230514-0001", "ARSON", time.Second),
		record("230514-0001", "ARSON", 2*time.Second),
	}

	result := d.DeduplicateBatch(records)
	if len(result) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result))
	}
	if result[0].Prediction.Category != "TRESPASS" || result[0].Duplicates != 0 {
		t.Errorf("result[0] = %s x%d, want TRESPASS x0", result[0].Prediction.Category, result[0].Duplicates)
	}
	if result[1].Prediction.Category != "ARSON" || result[1].Duplicates != 1 {
		t.Errorf("result[1] = %s x%d, want ARSON x1", result[1].Prediction.Category, result[1].Duplicates)
	}
	if result[1].ID != records[1].ID {
		t.Errorf("expected the first ARSON copy to be kept, got %s", result[1].ID)
	}
}

func TestDeduplicateBatchWindowExpiry(t *testing.T) {
	d := New(Config{Window: 2 * time.Second})
	records := []model.Record{
		record("230514-0001", "ARSON", 0),
		record("230514-0001", "ARSON", time.Second),
		record("230514-0001", "ARSON", 5*time.Second),
	}

	result := d.DeduplicateBatch(records)
	if len(result) != 2 {
		t.Fatalf("expected 2 groups (window expired), got %d", len(result))
	}
	if result[0].Duplicates != 1 || result[1].Duplicates != 0 {
		t.Fatalf("duplicates = %d, %d; want 1, 0", result[0].Duplicates, result[1].Duplicates)
	}
}

func TestDeduplicateBatchPassThrough(t *testing.T) {
	d := New(Config{Window: 5 * time.Second})
	failed := record("230514-0001", "", 0)
	failed.Error = "encoder contract violation"
	records := []model.Record{
		record("", "LARCENY/THEFT", 0),
		record("", "LARCENY/THEFT", time.Second),
		failed,
		record("230514-0001", "ARSON", time.Second),
	}

	result := d.DeduplicateBatch(records)
	if len(result) != 4 {
		t.Fatalf("expected all 4 records to pass through, got %d", len(result))
	}
}
