package binning

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Counts1D returns per-bin sample counts for x over edges. Samples outside
// [Min, Max] are dropped; a sample equal to Max lands in the last bin.
func Counts1D(x []float64, edges EdgeSequence) ([]float64, error) {
	if err := edges.Validate(); err != nil {
		return nil, err
	}
	hi := edges.Max()
	inner := make([]float64, 0, len(x))
	atMax := 0
	for _, v := range x {
		switch {
		case v == hi:
			atMax++
		case v >= edges.Min() && v < hi:
			inner = append(inner, v)
		}
	}
	sort.Float64s(inner)
	counts := stat.Histogram(nil, edges, inner, nil)
	counts[len(counts)-1] += float64(atMax)
	return counts, nil
}

// Density1D returns a density-normalised histogram: each bin holds
// count / (inRange * width) so the histogram integrates to one over the
// edges. When no sample falls in range every bin is zero.
func Density1D(x []float64, edges EdgeSequence) ([]float64, error) {
	counts, err := Counts1D(x, edges)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return counts, nil
	}
	for i := range counts {
		counts[i] /= total * edges.Width(i)
	}
	return counts, nil
}

// Counts2D returns per-cell counts of the points (x[i], y[i]) over g.
// The result has one row per y bin and one column per x bin.
func Counts2D(x, y []float64, g Grid) (*mat.Dense, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values but %d y values", ErrShapeMismatch, len(x), len(y))
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nx, ny := g.Dims()
	counts := mat.NewDense(ny, nx, nil)
	for i := range x {
		cx := g.X.Index(x[i])
		cy := g.Y.Index(y[i])
		if cx < 0 || cy < 0 {
			continue
		}
		counts.Set(cy, cx, counts.At(cy, cx)+1)
	}
	return counts, nil
}

// Density2D is the 2D analogue of Density1D: each cell holds
// count / (inRange * cellArea).
func Density2D(x, y []float64, g Grid) (*mat.Dense, error) {
	counts, err := Counts2D(x, y, g)
	if err != nil {
		return nil, err
	}
	total := mat.Sum(counts)
	if total == 0 {
		return counts, nil
	}
	ny, nx := counts.Dims()
	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			counts.Set(r, c, counts.At(r, c)/(total*g.X.Width(c)*g.Y.Width(r)))
		}
	}
	return counts, nil
}
