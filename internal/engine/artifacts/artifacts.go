// Package artifacts loads the fitted inference artifacts: the text
// vectorizer, the categorical encoder, the category model and the
// coordinate binning reference. A Set is loaded once at startup and
// shared read-only by every report.
package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/crimson-sun/blotter/internal/engine/classifier"
	"github.com/crimson-sun/blotter/internal/engine/features"
	"github.com/crimson-sun/blotter/internal/model"
)

// Set is a consistent group of fitted artifacts.
type Set struct {
	Manifest   *Manifest
	Vectorizer *TFIDF
	Encoder    *OneHot
	Model      classifier.Model
	Geo        features.GeoBinning

	// PointBinning is true when the manifest had no coordinate reference
	// and every GeoCluster is derived from the point itself.
	PointBinning bool
}

// Options tune how a Set is loaded.
type Options struct {
	// RuntimeLibrary overrides the ONNX Runtime shared library path.
	RuntimeLibrary string
	Logger         *slog.Logger
}

// Load reads the manifest at path (or dir/manifest.yaml when path is a
// directory) and every artifact it names. All failures are returned as
// *model.ArtifactError.
func Load(path string, opts Options) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ManifestFile)
	}
	m, err := ReadManifest(path)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "manifest", Path: path, Err: err}
	}

	vec, err := LoadTFIDF(m.Resolve(m.Vectorizer))
	if err != nil {
		return nil, err
	}
	enc, err := LoadOneHot(m.Resolve(m.Encoder))
	if err != nil {
		return nil, err
	}

	geo, err := m.GeoBinning()
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "manifest", Path: path, Err: fmt.Errorf("geo: %w", err)}
	}
	point := !m.HasGeoReference()
	if point {
		logger.Warn("artifacts: no coordinate reference range, GeoCluster is derived per point and carries no spatial signal",
			"manifest", path)
	}

	mdl, err := loadModel(m, opts)
	if err != nil {
		return nil, err
	}

	if want, got := mdl.InputDim(), vec.Dim()+enc.Dim(); want != got {
		mdl.Close()
		return nil, &model.ArtifactError{
			Artifact: "model",
			Path:     m.Resolve(m.Model.Path),
			Err: fmt.Errorf("model expects %d features, vectorizer (%d) + encoder (%d) give %d",
				want, vec.Dim(), enc.Dim(), got),
		}
	}

	logger.Info("artifacts: loaded",
		"manifest", path,
		"format", m.Model.Format,
		"classes", len(m.Model.Classes),
		"text_dim", vec.Dim(),
		"encoded_dim", enc.Dim(),
	)

	return &Set{
		Manifest:     m,
		Vectorizer:   vec,
		Encoder:      enc,
		Model:        mdl,
		Geo:          geo,
		PointBinning: point,
	}, nil
}

func loadModel(m *Manifest, opts Options) (classifier.Model, error) {
	path := m.Resolve(m.Model.Path)
	switch m.Model.Format {
	case FormatONNX:
		lib := opts.RuntimeLibrary
		if lib == "" {
			lib = m.Resolve(m.Model.RuntimeLibrary)
		}
		if lib == "" {
			lib = filepath.Join(filepath.Dir(path), "libonnxruntime.so")
		}
		return LoadONNX(path, lib, m.Model.Input, m.Model.Output, m.Model.Classes)
	default:
		return LoadLinear(path, m.Model.Classes)
	}
}

// Close releases the model.
func (s *Set) Close() error {
	if s.Model == nil {
		return nil
	}
	return s.Model.Close()
}
