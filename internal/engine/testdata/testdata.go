// Package testdata provides a small, internally consistent set of fitted
// artifacts and labelled sample reports for engine-level tests.
package testdata

import (
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
)

//go:embed corpus.json
var corpusJSON []byte

//go:embed artifacts
var artifactFS embed.FS

// Report is a sample document with its expected classification.
type Report struct {
	Name         string   `json:"name"`
	Pages        []string `json:"pages"`
	ReportNumber string   `json:"report_number"`
	Category     string   `json:"category"`
	Severity     int      `json:"severity"`
	GeoCluster   string   `json:"geo_cluster"`
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]Report, error) {
	var entries []Report
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}

// Classes lists the fixture model's labels in output order.
var Classes = []string{"ARSON", "LARCENY/THEFT", "SECONDARY CODES", "TRESPASS", "VANDALISM"}

// Fixture dimensions.
const (
	TextDim    = 9
	EncodedDim = 18
	InputDim   = TextDim + EncodedDim
)

// classTerms maps each class row to the vocabulary columns that vote for it.
var classTerms = [][]int{
	{1, 2},    // fire, flames
	{4, 5, 7}, // stolen, theft, wallet
	{0},       // domestic
	{6},       // trespass
	{3, 8},    // graffiti, window
}

// Tensor is a F32 tensor for EncodeSafetensors.
type Tensor struct {
	Shape []int
	Data  []float32
}

// ModelTensors returns the fixture linear model. Encoded columns carry no
// weight, and LARCENY/THEFT wins when the description is empty.
func ModelTensors() map[string]Tensor {
	coef := make([]float32, len(Classes)*InputDim)
	for row, cols := range classTerms {
		for _, c := range cols {
			coef[row*InputDim+c] = 4
		}
	}
	intercept := make([]float32, len(Classes))
	intercept[1] = 0.5
	return map[string]Tensor{
		"coef":      {Shape: []int{len(Classes), InputDim}, Data: coef},
		"intercept": {Shape: []int{len(Classes)}, Data: intercept},
	}
}

// EncodeSafetensors serialises tensors in safetensors layout, ordered by name.
func EncodeSafetensors(tensors map[string]Tensor) ([]byte, error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	type meta struct {
		Dtype       string `json:"dtype"`
		Shape       []int  `json:"shape"`
		DataOffsets [2]int `json:"data_offsets"`
	}
	header := make(map[string]meta, len(tensors))
	var buf []byte
	for _, name := range names {
		t := tensors[name]
		start := len(buf)
		for _, v := range t.Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		header[name] = meta{Dtype: "F32", Shape: t.Shape, DataOffsets: [2]int{start, len(buf)}}
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(hdr)))
	out = append(out, hdr...)
	return append(out, buf...), nil
}

// WriteArtifacts writes the fixture artifact set into dir and returns the
// manifest path.
func WriteArtifacts(dir string) (string, error) {
	err := fs.WalkDir(artifactFS, "artifacts", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := artifactFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, d.Name()), data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("write artifacts: %w", err)
	}

	model, err := EncodeSafetensors(ModelTensors())
	if err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.safetensors"), model, 0o644); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	return filepath.Join(dir, "manifest.yaml"), nil
}
