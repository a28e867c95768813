package blotter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/crimson-sun/blotter/internal/engine/testdata"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBlotter loads the fixture artifacts from a temp directory.
func newTestBlotter(t *testing.T, opts ...Option) *Blotter {
	t.Helper()
	dir := t.TempDir()
	if _, err := testdata.WriteArtifacts(dir); err != nil {
		t.Fatalf("WriteArtifacts() error: %v", err)
	}
	opts = append([]Option{WithArtifactDir(dir), WithLogger(quietLogger())}, opts...)
	b, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func corpus(t *testing.T) []testdata.Report {
	t.Helper()
	entries, err := testdata.LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	return entries
}

const walletReport = `Report Number: 230514-0107
Date & Time: 2023-05-14 18:05:00
Incident Location: 800 Block of MARKET ST
Coordinates: (37.7712, -122.4105)
Detailed Description: Victim reported a wallet stolen from a parked car.
Police District: SOUTHERN
Resolution: NONE`

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithArtifactDir("/nonexistent/path"), WithLogger(quietLogger()))
	if err == nil {
		t.Fatal("expected error for bad artifact path, got nil")
	}
}

func TestNewBadVerbosityReturnsError(t *testing.T) {
	_, err := New(WithArtifactDir(t.TempDir()), WithVerbosity("chatty"))
	if err == nil {
		t.Fatal("expected error for unknown verbosity, got nil")
	}
}

func TestNewWithManifest(t *testing.T) {
	dir := t.TempDir()
	manifest, err := testdata.WriteArtifacts(dir)
	if err != nil {
		t.Fatalf("WriteArtifacts() error: %v", err)
	}
	b, err := New(WithManifest(manifest), WithArtifactDir("/ignored"), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.Close()
}

func TestClassifyKnownReport(t *testing.T) {
	b := newTestBlotter(t)

	p, err := b.Classify(walletReport)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}

	if p.Category != "LARCENY/THEFT" {
		t.Errorf("Category = %q, want LARCENY/THEFT", p.Category)
	}
	if p.Severity != 3 || p.SeverityLabel() != "3" {
		t.Errorf("Severity = %d (%s), want 3", p.Severity, p.SeverityLabel())
	}
	if p.Confidence <= 0 || p.Confidence > 1 {
		t.Errorf("Confidence = %f, want in (0, 1]", p.Confidence)
	}
	if !strings.Contains(p.Summary, "wallet stolen") {
		t.Errorf("Summary = %q, want the description", p.Summary)
	}
	if p.Fields["ReportNumber"] != "230514-0107" {
		t.Errorf("Fields[ReportNumber] = %q, want 230514-0107", p.Fields["ReportNumber"])
	}

	f := p.Features
	if f == nil {
		t.Fatal("Features missing at full verbosity")
	}
	if f.Year != 2023 || f.Month != 5 || f.Hour != 18 {
		t.Errorf("temporal features = %d-%d h%d, want 2023-5 h18", f.Year, f.Month, f.Hour)
	}
	if !f.IsWeekend || !f.PeakHour {
		t.Errorf("IsWeekend=%v PeakHour=%v, want both true for Sunday 18:05", f.IsWeekend, f.PeakHour)
	}
	if f.AddressBlock != 800 || f.GeoCluster != "11_13" || f.PoliceDistrict != "SOUTHERN" || f.DayOfWeek != "Sunday" {
		t.Errorf("spatial features = %+v", *f)
	}
}

func TestClassifyPagesCorpus(t *testing.T) {
	b := newTestBlotter(t)

	for _, entry := range corpus(t) {
		t.Run(entry.Name, func(t *testing.T) {
			p, err := b.ClassifyPages(entry.Pages)
			if err != nil {
				t.Fatalf("ClassifyPages() error: %v", err)
			}
			if p.Category != entry.Category {
				t.Errorf("Category = %q, want %q", p.Category, entry.Category)
			}
			if p.Severity != entry.Severity {
				t.Errorf("Severity = %d, want %d", p.Severity, entry.Severity)
			}
			if p.Features.GeoCluster != entry.GeoCluster {
				t.Errorf("GeoCluster = %q, want %q", p.Features.GeoCluster, entry.GeoCluster)
			}
		})
	}
}

func TestUnknownSeverityLabel(t *testing.T) {
	b := newTestBlotter(t)
	p, err := b.Classify("Date & Time: 2023-05-14 18:00:00\nDetailed Description: Domestic dispute.\nPolice District: SOUTHERN")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if p.Category != "SECONDARY CODES" {
		t.Fatalf("Category = %q, want SECONDARY CODES", p.Category)
	}
	if p.SeverityKnown() || p.SeverityLabel() != "unknown" {
		t.Errorf("expected unknown severity, got %d (%s)", p.Severity, p.SeverityLabel())
	}
}

func TestPredictionJSONSeverity(t *testing.T) {
	tests := []struct {
		name string
		pred Prediction
		want string
	}{
		{"known", Prediction{Category: "ARSON", Severity: 5}, `{"category":"ARSON","severity":5}`},
		{"unknown", Prediction{Category: "SECONDARY CODES"}, `{"category":"SECONDARY CODES","severity":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.pred)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestClassifyBatchMatchesIndividual(t *testing.T) {
	b := newTestBlotter(t)

	var texts []string
	for _, entry := range corpus(t) {
		texts = append(texts, strings.Join(entry.Pages, "\n"))
	}

	batch, err := b.ClassifyBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("ClassifyBatch() error: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d predictions, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, err := b.Classify(text)
		if err != nil {
			t.Fatalf("Classify(%d) error: %v", i, err)
		}
		if batch[i].Category != single.Category || batch[i].Severity != single.Severity {
			t.Errorf("item %d: batch %s/%d != single %s/%d",
				i, batch[i].Category, batch[i].Severity, single.Category, single.Severity)
		}
	}
}

func TestClassifyBatchEmpty(t *testing.T) {
	b := newTestBlotter(t)
	out, err := b.ClassifyBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClassifyBatch(nil) error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no predictions, got %d", len(out))
	}
}

func TestClassifyReportsContractViolation(t *testing.T) {
	b := newTestBlotter(t)
	reports := []Report{
		{Pages: []string{walletReport}, Source: "ok.txt"},
		{Pages: []string{strings.Replace(walletReport, "SOUTHERN", "NORTHERN", 1)}, Source: "bad.txt"},
	}
	if _, err := b.ClassifyReports(context.Background(), reports); err == nil {
		t.Fatal("expected error for a district the encoder was not fitted on")
	}
}

func TestVerbosityMinimal(t *testing.T) {
	b := newTestBlotter(t, WithVerbosity("minimal"))
	p, err := b.Classify(walletReport)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if p.Category != "LARCENY/THEFT" || p.Severity != 3 {
		t.Errorf("got %s/%d, want LARCENY/THEFT/3", p.Category, p.Severity)
	}
	if p.Summary != "" || p.Confidence != 0 || p.Fields != nil || p.Features != nil {
		t.Errorf("minimal prediction should carry only category and severity: %+v", p)
	}
}

func TestVerbosityStandard(t *testing.T) {
	b := newTestBlotter(t, WithVerbosity("standard"))
	p, err := b.Classify(walletReport)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if p.Summary == "" || p.Confidence == 0 {
		t.Errorf("standard prediction should keep summary and confidence: %+v", p)
	}
	if p.Fields != nil || p.Features != nil {
		t.Errorf("standard prediction should drop fields and features: %+v", p)
	}
}

func TestExtract(t *testing.T) {
	b := newTestBlotter(t)
	fields := b.Extract("Report Number: 230520-0311\nIncident Location: 800 Block of FOLSOM ST\n")

	if fields["ReportNumber"] != "230520-0311" {
		t.Errorf("ReportNumber = %q", fields["ReportNumber"])
	}
	if fields["IncidentLocation"] != "800 Block of FOLSOM ST" {
		t.Errorf("IncidentLocation = %q", fields["IncidentLocation"])
	}
	if _, ok := fields["Coordinates"]; ok {
		t.Error("Coordinates should be absent")
	}
}

func TestSeverity(t *testing.T) {
	b := newTestBlotter(t)

	if s, ok := b.Severity("ARSON"); !ok || s != 5 {
		t.Errorf("Severity(ARSON) = %d, %v; want 5, true", s, ok)
	}
	if s, ok := b.Severity("SECONDARY CODES"); ok || s != 0 {
		t.Errorf("Severity(SECONDARY CODES) = %d, %v; want 0, false", s, ok)
	}
	if _, ok := b.Severity("arson"); ok {
		t.Error("severity lookup should be case-sensitive")
	}
}

func TestSeverityTiers(t *testing.T) {
	b := newTestBlotter(t)
	tiers := b.SeverityTiers()
	if len(tiers) != 5 {
		t.Fatalf("got %d tiers, want 5", len(tiers))
	}
	for i, tier := range tiers {
		if tier.Severity != i+1 {
			t.Errorf("tier %d has severity %d", i, tier.Severity)
		}
		if len(tier.Categories) == 0 {
			t.Errorf("tier %d is empty", tier.Severity)
		}
	}
	// Mutating the copy must not affect the table.
	tiers[0].Categories[0] = "CHANGED"
	if b.SeverityTiers()[0].Categories[0] == "CHANGED" {
		t.Error("SeverityTiers should return a copy")
	}
}

func TestConcurrentClassify(t *testing.T) {
	b := newTestBlotter(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := b.Classify(walletReport)
			if err != nil {
				errs <- err
				return
			}
			if p.Category != "LARCENY/THEFT" {
				errs <- &mismatchError{got: p.Category}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type mismatchError struct{ got string }

func (e *mismatchError) Error() string { return "unexpected category " + e.got }
