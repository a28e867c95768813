package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/blotter/internal/engine/features"
)

// Model formats understood by Load.
const (
	FormatLinear = "linear"
	FormatONNX   = "onnx"
)

// ManifestFile is the default manifest name inside an artifact directory.
const ManifestFile = "manifest.yaml"

// Manifest describes a fitted artifact set. Relative paths resolve against
// the directory holding the manifest.
type Manifest struct {
	Version    int          `yaml:"version"`
	Model      ModelSpec    `yaml:"model"`
	Vectorizer string       `yaml:"vectorizer"`
	Encoder    string       `yaml:"encoder"`
	Geo        GeoReference `yaml:"geo"`

	dir string
}

// ModelSpec points at the category model and names its labels in output order.
type ModelSpec struct {
	Format         string   `yaml:"format"`
	Path           string   `yaml:"path"`
	Classes        []string `yaml:"classes"`
	Input          string   `yaml:"input,omitempty"`
	Output         string   `yaml:"output,omitempty"`
	RuntimeLibrary string   `yaml:"runtime_library,omitempty"`
}

// GeoReference records how coordinates were binned at training time.
type GeoReference struct {
	Bins      int       `yaml:"bins"`
	Latitude  AxisRange `yaml:"latitude"`
	Longitude AxisRange `yaml:"longitude"`
}

// AxisRange is either the training min/max of one coordinate or its explicit
// bin edges. Edges win when both are present.
type AxisRange struct {
	Min   *float64  `yaml:"min,omitempty"`
	Max   *float64  `yaml:"max,omitempty"`
	Edges []float64 `yaml:"edges,omitempty"`
}

func (a AxisRange) empty() bool {
	return len(a.Edges) == 0 && (a.Min == nil || a.Max == nil)
}

func (a AxisRange) binner(bins int) (features.Binner, error) {
	if len(a.Edges) > 0 {
		return features.NewEdgeBinner(a.Edges)
	}
	return features.NewFittedBinner(*a.Min, *a.Max, bins)
}

// ReadManifest parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	m.dir = filepath.Dir(path)

	if m.Model.Format == "" {
		m.Model.Format = FormatLinear
	}
	if m.Geo.Bins == 0 {
		m.Geo.Bins = features.DefaultBins
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	switch m.Model.Format {
	case FormatLinear, FormatONNX:
	default:
		return fmt.Errorf("unknown model format %q", m.Model.Format)
	}
	if m.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if len(m.Model.Classes) == 0 {
		return fmt.Errorf("model.classes is required")
	}
	if m.Vectorizer == "" {
		return fmt.Errorf("vectorizer is required")
	}
	if m.Encoder == "" {
		return fmt.Errorf("encoder is required")
	}
	if m.Geo.Bins < 1 {
		return fmt.Errorf("geo.bins must be positive, got %d", m.Geo.Bins)
	}
	return nil
}

// Resolve makes p absolute relative to the manifest directory.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

// HasGeoReference reports whether both axes carry a training reference.
func (m *Manifest) HasGeoReference() bool {
	return !m.Geo.Latitude.empty() && !m.Geo.Longitude.empty()
}

// GeoBinning builds the coordinate binners the manifest describes. Without a
// reference range it falls back to single-point binning.
func (m *Manifest) GeoBinning() (features.GeoBinning, error) {
	if !m.HasGeoReference() {
		return features.PointBinning(m.Geo.Bins), nil
	}
	lat, err := m.Geo.Latitude.binner(m.Geo.Bins)
	if err != nil {
		return features.GeoBinning{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := m.Geo.Longitude.binner(m.Geo.Bins)
	if err != nil {
		return features.GeoBinning{}, fmt.Errorf("longitude: %w", err)
	}
	return features.GeoBinning{Latitude: lat, Longitude: lon}, nil
}
