package artifacts

import (
	"fmt"
	"math"
	"slices"

	"github.com/crimson-sun/blotter/internal/engine/classifier"
	"github.com/crimson-sun/blotter/internal/model"
)

// Linear is a multinomial logistic regression read from a safetensors file
// holding a "coef" [K, N] matrix and an "intercept" [K] vector. A single-row
// coef with two classes is treated as a binary model.
type Linear struct {
	coef      []float32 // row-major [rows, inDim]
	intercept []float32
	rows      int
	inDim     int
	classes   []string
}

// LoadLinear reads a linear model and binds it to the given class labels.
func LoadLinear(path string, classes []string) (*Linear, error) {
	tensors, err := readSafetensors(path)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "model", Path: path, Err: err}
	}
	m, err := newLinear(tensors, classes)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "model", Path: path, Err: err}
	}
	return m, nil
}

func newLinear(tensors map[string]tensor, classes []string) (*Linear, error) {
	coef, ok := tensors["coef"]
	if !ok {
		return nil, fmt.Errorf("tensor 'coef' not found")
	}
	intercept, ok := tensors["intercept"]
	if !ok {
		return nil, fmt.Errorf("tensor 'intercept' not found")
	}
	if len(coef.shape) != 2 {
		return nil, fmt.Errorf("expected 2D coef, got shape %v", coef.shape)
	}
	rows, inDim := coef.shape[0], coef.shape[1]
	if len(intercept.data) != rows {
		return nil, fmt.Errorf("intercept has %d values for %d coef rows", len(intercept.data), rows)
	}

	binary := rows == 1 && len(classes) == 2
	if !binary && rows != len(classes) {
		return nil, fmt.Errorf("coef has %d rows for %d classes", rows, len(classes))
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("need at least two classes, got %d", len(classes))
	}

	return &Linear{
		coef:      coef.data,
		intercept: intercept.data,
		rows:      rows,
		inDim:     inDim,
		classes:   slices.Clone(classes),
	}, nil
}

func (m *Linear) InputDim() int     { return m.inDim }
func (m *Linear) Classes() []string { return slices.Clone(m.classes) }
func (m *Linear) Close() error      { return nil }

// Predict returns one probability per class.
func (m *Linear) Predict(vec []float32) ([]float64, error) {
	if len(vec) != m.inDim {
		return nil, fmt.Errorf("linear: input width %d, want %d", len(vec), m.inDim)
	}
	scores := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.coef[i*m.inDim : (i+1)*m.inDim]
		sum := float64(m.intercept[i])
		for j, w := range row {
			sum += float64(w) * float64(vec[j])
		}
		scores[i] = sum
	}

	if m.rows == 1 {
		p := 1 / (1 + math.Exp(-scores[0]))
		return []float64{1 - p, p}, nil
	}
	return classifier.Softmax(scores), nil
}
