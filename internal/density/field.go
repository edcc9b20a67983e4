package density

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/kode-ml/kode/internal/binning"
)

// Field is a grid of non-negative density values. Rows follow the y bins
// and columns the x bins of Grid. Field satisfies plotter.GridXYZ, with
// coordinates at cell centres, so it can be drawn as a heat map or contour.
type Field struct {
	Grid   binning.Grid
	Values *mat.Dense

	xc, yc []float64
}

// NewField wraps values laid out over g. values must be ny × nx.
func NewField(g binning.Grid, values *mat.Dense) (*Field, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nx, ny := g.Dims()
	r, c := values.Dims()
	if r != ny || c != nx {
		return nil, fmt.Errorf("%w: field is %dx%d, grid is %dx%d", binning.ErrShapeMismatch, r, c, ny, nx)
	}
	return &Field{Grid: g, Values: values, xc: g.X.Centers(), yc: g.Y.Centers()}, nil
}

// Histogram builds the empirical density field of the points (x[i], y[i]).
func Histogram(x, y []float64, g binning.Grid) (*Field, error) {
	v, err := binning.Density2D(x, y, g)
	if err != nil {
		return nil, err
	}
	return NewField(g, v)
}

// Dims implements plotter.GridXYZ.
func (f *Field) Dims() (c, r int) {
	r, c = f.Values.Dims()
	return c, r
}

// Z implements plotter.GridXYZ.
func (f *Field) Z(c, r int) float64 { return f.Values.At(r, c) }

// X implements plotter.GridXYZ.
func (f *Field) X(c int) float64 { return f.xc[c] }

// Y implements plotter.GridXYZ.
func (f *Field) Y(r int) float64 { return f.yc[r] }

// Min returns the smallest value in the field.
func (f *Field) Min() float64 { return mat.Min(f.Values) }

// Max returns the largest value in the field.
func (f *Field) Max() float64 { return mat.Max(f.Values) }

// Validate reports whether every value is finite and non-negative.
func (f *Field) Validate() error {
	r, c := f.Values.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := f.Values.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: value %g at (%d, %d)", ErrDegenerate, v, i, j)
			}
		}
	}
	return nil
}

// Levels returns the field values at the given percentiles (0, 100],
// deduplicated and ascending. Used to pick contour levels that follow the
// mass of the distribution rather than its peak.
func (f *Field) Levels(percentiles ...float64) ([]float64, error) {
	data := stats.Float64Data(mat.DenseCopyOf(f.Values).RawMatrix().Data)
	levels := make([]float64, 0, len(percentiles))
	for _, p := range percentiles {
		v, err := stats.Percentile(data, p)
		if err != nil {
			return nil, fmt.Errorf("percentile %g: %w", p, err)
		}
		if len(levels) > 0 && v <= levels[len(levels)-1] {
			continue
		}
		levels = append(levels, v)
	}
	return levels, nil
}

// Mass returns the integral of the field over its grid.
func (f *Field) Mass() float64 {
	r, c := f.Values.Dims()
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			total += f.Values.At(i, j) * f.Grid.X.Width(j) * f.Grid.Y.Width(i)
		}
	}
	return total
}
