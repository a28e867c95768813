package classifier

import (
	"fmt"
	"math"

	"github.com/crimson-sun/blotter/internal/model"
)

// Model is a fitted category model.
type Model interface {
	// InputDim is the feature-vector width the model was fitted on.
	InputDim() int
	// Classes are the category labels in output order.
	Classes() []string
	// Predict returns one probability per class.
	Predict(x []float32) ([]float64, error)
	Close() error
}

// Result holds the outcome of classifying a single feature vector.
type Result struct {
	Category   string
	Confidence float64
}

// Classifier picks the most likely category from a fitted model.
type Classifier struct {
	model Model
}

// New creates a Classifier around a fitted model.
func New(m Model) *Classifier {
	return &Classifier{model: m}
}

// InputDim returns the width the underlying model expects.
func (c *Classifier) InputDim() int {
	return c.model.InputDim()
}

// Classify returns the single most likely category for vector. A vector of
// the wrong width, or a model output that does not match its class list, is
// a *model.ContractError.
func (c *Classifier) Classify(vector []float32) (Result, error) {
	if want := c.model.InputDim(); len(vector) != want {
		return Result{}, &model.ContractError{Component: "model", Want: want, Got: len(vector)}
	}

	probs, err := c.model.Predict(vector)
	if err != nil {
		return Result{}, fmt.Errorf("classifier: %w", err)
	}

	classes := c.model.Classes()
	if len(probs) != len(classes) {
		return Result{}, &model.ContractError{
			Component: "model",
			Detail:    fmt.Sprintf("%d outputs for %d classes", len(probs), len(classes)),
		}
	}
	if len(probs) == 0 {
		return Result{}, &model.ContractError{Component: "model", Detail: "model has no classes"}
	}

	best := argmax(probs)
	return Result{Category: classes[best], Confidence: probs[best]}, nil
}

// argmax returns the index of the largest value; ties go to the lowest index.
// NaN never wins.
func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] || math.IsNaN(xs[best]) {
			best = i
		}
	}
	return best
}

// Softmax converts raw scores to probabilities.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
