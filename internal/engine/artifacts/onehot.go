package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/crimson-sun/blotter/internal/model"
)

// onehotFile is the on-disk form of a fitted one-hot encoder. Categories may
// be written as strings or numbers; both compare as their string form.
type onehotFile struct {
	FeatureNamesIn []string `json:"feature_names_in"`
	Categories     [][]any  `json:"categories"`
	HandleUnknown  string   `json:"handle_unknown"`
}

// OneHot is a fitted categorical encoder over the structured feature columns.
type OneHot struct {
	columns       []string
	index         []map[string]int // per column: category → offset in its block
	offsets       []int            // start of each column block
	dim           int
	ignoreUnknown bool
}

// LoadOneHot reads a fitted encoder from a JSON file.
func LoadOneHot(path string) (*OneHot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "encoder", Path: path, Err: err}
	}
	var f onehotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &model.ArtifactError{Artifact: "encoder", Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	enc, err := newOneHot(f)
	if err != nil {
		return nil, &model.ArtifactError{Artifact: "encoder", Path: path, Err: err}
	}
	return enc, nil
}

func newOneHot(f onehotFile) (*OneHot, error) {
	if !slices.Equal(f.FeatureNamesIn, model.StructuredColumns) {
		return nil, fmt.Errorf("columns %v do not match %v", f.FeatureNamesIn, model.StructuredColumns)
	}
	if len(f.Categories) != len(f.FeatureNamesIn) {
		return nil, fmt.Errorf("%d category lists for %d columns", len(f.Categories), len(f.FeatureNamesIn))
	}

	var ignore bool
	switch f.HandleUnknown {
	case "", "error":
	case "ignore":
		ignore = true
	default:
		return nil, fmt.Errorf("unsupported handle_unknown %q", f.HandleUnknown)
	}

	enc := &OneHot{
		columns:       f.FeatureNamesIn,
		index:         make([]map[string]int, len(f.Categories)),
		offsets:       make([]int, len(f.Categories)),
		ignoreUnknown: ignore,
	}
	for i, cats := range f.Categories {
		if len(cats) == 0 {
			return nil, fmt.Errorf("column %s has no categories", f.FeatureNamesIn[i])
		}
		idx := make(map[string]int, len(cats))
		for j, c := range cats {
			key, err := categoryString(c)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.FeatureNamesIn[i], err)
			}
			if _, dup := idx[key]; dup {
				return nil, fmt.Errorf("column %s: duplicate category %q", f.FeatureNamesIn[i], key)
			}
			idx[key] = j
		}
		enc.index[i] = idx
		enc.offsets[i] = enc.dim
		enc.dim += len(cats)
	}
	return enc, nil
}

func categoryString(v any) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(c), nil
	default:
		return "", fmt.Errorf("unsupported category value %v", v)
	}
}

// Dim returns the total width of all column blocks.
func (e *OneHot) Dim() int {
	return e.dim
}

// Columns returns the fitted column order.
func (e *OneHot) Columns() []string {
	return slices.Clone(e.columns)
}

// Transform encodes s into concatenated one-hot blocks, one per column.
func (e *OneHot) Transform(s model.StructuredFeatures) ([]float32, error) {
	out := make([]float32, e.dim)
	for i, name := range e.columns {
		value, ok := s.Column(name)
		if !ok {
			return nil, &model.ContractError{Component: "encoder", Detail: fmt.Sprintf("no structured column %s", name)}
		}
		j, known := e.index[i][value]
		if !known {
			if e.ignoreUnknown {
				continue
			}
			return nil, &model.ContractError{
				Component: "encoder",
				Detail:    fmt.Sprintf("unknown category %q in column %s", value, name),
			}
		}
		out[e.offsets[i]+j] = 1
	}
	return out, nil
}
