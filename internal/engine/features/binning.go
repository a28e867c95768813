package features

import (
	"fmt"
	"math"
	"sort"
)

// DefaultBins is the number of equal-width bins per coordinate.
const DefaultBins = 20

// Binner assigns a value to a bin index.
type Binner interface {
	Bin(v float64) (int, bool)
}

// GeoBinning holds the binners for each coordinate axis.
type GeoBinning struct {
	Latitude  Binner
	Longitude Binner
}

// EdgeBinner bins against fixed, right-closed edges: bin i covers
// (edges[i], edges[i+1]]. Values outside the edges do not bin.
type EdgeBinner struct {
	edges []float64
}

// NewEdgeBinner uses edges exactly as fitted at training time.
func NewEdgeBinner(edges []float64) (*EdgeBinner, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("binning: need at least 2 edges, got %d", len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("binning: edges must be strictly increasing at index %d", i)
		}
	}
	cp := make([]float64, len(edges))
	copy(cp, edges)
	return &EdgeBinner{edges: cp}, nil
}

// NewFittedBinner reproduces the edges of an n-bin equal-width cut over a
// training reference range [min, max]: the first edge is lowered by 0.1% of
// the range so that min itself falls in bin 0.
func NewFittedBinner(min, max float64, n int) (*EdgeBinner, error) {
	if n < 1 {
		return nil, fmt.Errorf("binning: bin count must be positive, got %d", n)
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("binning: range must be finite")
	}
	if !(max > min) {
		return nil, fmt.Errorf("binning: max %v must exceed min %v", max, min)
	}
	edges := linspace(min, max, n+1)
	edges[0] -= (max - min) * 0.001
	return &EdgeBinner{edges: edges}, nil
}

// Edges returns a copy of the bin edges.
func (b *EdgeBinner) Edges() []float64 {
	cp := make([]float64, len(b.edges))
	copy(cp, b.edges)
	return cp
}

// Bin returns the index of the bin containing v.
func (b *EdgeBinner) Bin(v float64) (int, bool) {
	return binRightClosed(b.edges, v)
}

// PointBinner recomputes edges from the single incoming value, widening it
// by 0.1% on each side. Every finite value sits at the centre of its own
// range, so the result carries no spatial information. It matches models
// fitted against that behaviour when no reference range was recorded.
type PointBinner struct {
	n int
}

// NewPointBinner returns a PointBinner with n bins.
func NewPointBinner(n int) PointBinner {
	return PointBinner{n: n}
}

// Bin returns the bin index of v in a cut computed over v alone.
func (p PointBinner) Bin(v float64) (int, bool) {
	if p.n < 1 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	lo, hi := v, v
	if lo != 0 {
		lo -= 0.001 * math.Abs(lo)
	} else {
		lo -= 0.001
	}
	if hi != 0 {
		hi += 0.001 * math.Abs(hi)
	} else {
		hi += 0.001
	}
	return binRightClosed(linspace(lo, hi, p.n+1), v)
}

// PointBinning returns the degenerate per-value binning for both axes.
func PointBinning(n int) GeoBinning {
	return GeoBinning{Latitude: NewPointBinner(n), Longitude: NewPointBinner(n)}
}

// linspace matches numpy.linspace with endpoint=true.
func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = float64(i)*step + start
	}
	out[num-1] = stop
	return out
}

// binRightClosed finds i with edges[i] < v <= edges[i+1].
func binRightClosed(edges []float64, v float64) (int, bool) {
	idx := sort.SearchFloat64s(edges, v) // first index with edges[idx] >= v
	if idx == 0 || idx == len(edges) {
		return 0, false
	}
	return idx - 1, true
}
