package artifacts

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/crimson-sun/blotter/internal/model"
)

// tfidfFile is the on-disk form of a fitted TF-IDF vectorizer.
type tfidfFile struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Lowercase    *bool          `json:"lowercase"`
	StripAccents string         `json:"strip_accents"`
	NgramRange   []int          `json:"ngram_range"`
	StopWords    []string       `json:"stop_words"`
	Norm         *string        `json:"norm"`
	UseIDF       *bool          `json:"use_idf"`
	SublinearTF  bool           `json:"sublinear_tf"`
	Binary       bool           `json:"binary"`
}

// TFIDF is a fitted text vectorizer. Its vocabulary and weights never change
// after loading, so it is safe for concurrent use.
type TFIDF struct {
	vocab     map[string]int
	idf       []float64 // nil when idf weighting is off
	analyzer  analyzer
	norm      string
	sublinear bool
	binary    bool
}

// LoadTFIDF reads a fitted vectorizer from a JSON file.
func LoadTFIDF(path string) (*TFIDF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "vectorizer", Path: path, Err: err}
	}
	var f tfidfFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &model.ArtifactError{Artifact: "vectorizer", Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	v, err := newTFIDF(f)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "vectorizer", Path: path, Err: err}
	}
	return v, nil
}

func newTFIDF(f tfidfFile) (*TFIDF, error) {
	n := len(f.Vocabulary)
	if n == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}

	// Column indices must cover 0..n-1 exactly once.
	seen := make([]bool, n)
	for term, idx := range f.Vocabulary {
		if idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("term %q has invalid or duplicate column %d", term, idx)
		}
		seen[idx] = true
	}

	useIDF := f.UseIDF == nil || *f.UseIDF
	var idf []float64
	if useIDF {
		if len(f.IDF) != n {
			return nil, fmt.Errorf("idf has %d weights for %d terms", len(f.IDF), n)
		}
		idf = f.IDF
	}

	normName := "l2"
	if f.Norm != nil {
		normName = *f.Norm
	}
	switch normName {
	case "l1", "l2", "":
	default:
		return nil, fmt.Errorf("unsupported norm %q", normName)
	}

	switch f.StripAccents {
	case "", "unicode", "ascii":
	default:
		return nil, fmt.Errorf("unsupported strip_accents %q", f.StripAccents)
	}

	minN, maxN := 1, 1
	if len(f.NgramRange) != 0 {
		if len(f.NgramRange) != 2 || f.NgramRange[0] < 1 || f.NgramRange[1] < f.NgramRange[0] {
			return nil, fmt.Errorf("invalid ngram_range %v", f.NgramRange)
		}
		minN, maxN = f.NgramRange[0], f.NgramRange[1]
	}

	var stop map[string]bool
	if len(f.StopWords) > 0 {
		stop = make(map[string]bool, len(f.StopWords))
		for _, w := range f.StopWords {
			stop[w] = true
		}
	}

	return &TFIDF{
		vocab: f.Vocabulary,
		idf:   idf,
		analyzer: analyzer{
			lowercase:    f.Lowercase == nil || *f.Lowercase,
			stripAccents: f.StripAccents,
			stopWords:    stop,
			minN:         minN,
			maxN:         maxN,
		},
		norm:      normName,
		sublinear: f.SublinearTF,
		binary:    f.Binary,
	}, nil
}

// Dim returns the vocabulary size.
func (v *TFIDF) Dim() int {
	return len(v.vocab)
}

// Transform returns the weighted, normalised term vector for text. Terms
// outside the fitted vocabulary are ignored.
func (v *TFIDF) Transform(text string) ([]float32, error) {
	counts := make(map[int]float64)
	for _, term := range v.analyzer.analyze(text) {
		if idx, ok := v.vocab[term]; ok {
			counts[idx]++
		}
	}

	weights := make([]float64, len(v.vocab))
	for idx, c := range counts {
		tf := c
		if v.binary {
			tf = 1
		}
		if v.sublinear {
			tf = 1 + math.Log(tf)
		}
		if v.idf != nil {
			tf *= v.idf[idx]
		}
		weights[idx] = tf
	}
	normalize(weights, v.norm)

	out := make([]float32, len(weights))
	for i, w := range weights {
		out[i] = float32(w)
	}
	return out, nil
}

func normalize(w []float64, kind string) {
	var total float64
	switch kind {
	case "l2":
		for _, x := range w {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range w {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range w {
		w[i] /= total
	}
}
