package density

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/dataset"
)

var _ plotter.GridXYZ = (*Field)(nil)

func normalSet(t *testing.T, seed uint64, n int) dataset.SampleSet {
	t.Helper()
	return dataset.StandardNormal(rand.NewPCG(seed, seed+1), n, 2)
}

func TestBandwidthRules(t *testing.T) {
	assert.InDelta(t, math.Pow(100, -1.0/6), Scott(100, 2), 1e-12)
	assert.InDelta(t, math.Pow(100, -1.0/6), Silverman(100, 2), 1e-12, "d=2 makes both rules agree")
	assert.InDelta(t, math.Pow(100*3.0/4, -1.0/5), Silverman(100, 1), 1e-12)
	assert.Equal(t, 0.1, Factor(0.1)(10, 3))
}

func TestEstimateStandardNormal(t *testing.T) {
	s := normalSet(t, 7, 2000)
	g, err := binning.ResolveGrid(nil, nil)
	require.NoError(t, err)

	f, err := Estimate(s, g)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	c, r := f.Dims()
	assert.Equal(t, 49, c)
	assert.Equal(t, 49, r)

	// Nearly all of a standard normal lies within [-4, 4]^2.
	assert.InDelta(t, 1.0, f.Mass(), 0.05)

	// Peak near the origin, roughly 1/(2π) smoothed by the kernel.
	peak := f.Max()
	assert.Greater(t, peak, 0.10)
	assert.Less(t, peak, 0.20)
	assert.GreaterOrEqual(t, f.Min(), 0.0)
}

func TestFitReuse(t *testing.T) {
	k, err := Fit(normalSet(t, 11, 300))
	require.NoError(t, err)
	assert.Equal(t, 2, k.Dim())

	g1 := binning.DefaultGrid()
	x, _ := binning.Linspace(-2, 2, 11)
	g2 := binning.Grid{X: x, Y: x}

	f1, err := k.Evaluate(g1)
	require.NoError(t, err)
	f2, err := k.Evaluate(g2)
	require.NoError(t, err)

	// Same fitted estimator, same point, same value.
	assert.InDelta(t, k.At([]float64{f2.X(5), f2.Y(5)}), f2.Z(5, 5), 1e-15)
	assert.NotSame(t, f1, f2)
}

func TestDegenerateInputs(t *testing.T) {
	src := rand.New(rand.NewPCG(5, 6))
	flat := make([][]float64, 200)
	line := make([][]float64, 200)
	for i := range flat {
		x := src.NormFloat64()
		flat[i] = []float64{x, 3 + 1e-15*src.NormFloat64()}
		line[i] = []float64{x, 2 * x}
	}

	tests := []struct {
		name string
		rows [][]float64
	}{
		{"near-zero variance axis", flat},
		{"collinear", line},
		{"too few samples", [][]float64{{0, 1}, {1, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := dataset.SampleSetFromRows(tt.rows)
			require.NoError(t, err)
			f, err := Estimate(s, binning.DefaultGrid())
			assert.ErrorIs(t, err, ErrDegenerate)
			assert.Nil(t, f)
		})
	}
}

func TestEstimateShapeMismatch(t *testing.T) {
	s := dataset.SampleSetFromValues([]float64{1, 2, 3})
	_, err := Estimate(s, binning.DefaultGrid())
	assert.ErrorIs(t, err, binning.ErrShapeMismatch)

	k, err := Fit(dataset.StandardNormal(rand.NewPCG(1, 1), 50, 3))
	require.NoError(t, err)
	_, err = k.Evaluate(binning.DefaultGrid())
	assert.ErrorIs(t, err, binning.ErrShapeMismatch)
}

func TestHistogramField(t *testing.T) {
	s := normalSet(t, 3, 5000)
	f, err := Histogram(s.Col(0), s.Col(1), binning.DefaultGrid())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f.Mass(), 1e-9)

	levels, err := f.Levels(50, 75, 90, 99)
	require.NoError(t, err)
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i], levels[i-1])
	}
}

func TestNewFieldShape(t *testing.T) {
	k, err := Fit(normalSet(t, 2, 100))
	require.NoError(t, err)
	v, err := k.EvaluateMesh([]float64{0, 1}, []float64{0})
	require.NoError(t, err)
	_, err = NewField(binning.DefaultGrid(), v)
	assert.ErrorIs(t, err, binning.ErrShapeMismatch)
}

func TestFit1D(t *testing.T) {
	src := rand.New(rand.NewPCG(9, 9))
	v := make([]float64, 1000)
	for i := range v {
		v[i] = src.NormFloat64()
	}
	k, err := Fit1D(v, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, k.Bandwidth(), 0.01)

	xs := k.Support(400, 3)
	ys := k.Evaluate(xs)
	area := 0.0
	for i := 1; i < len(xs); i++ {
		area += 0.5 * (ys[i] + ys[i-1]) * (xs[i] - xs[i-1])
	}
	assert.InDelta(t, 1.0, area, 0.01)

	_, err = Fit1D([]float64{2, 2, 2}, 0.1)
	assert.ErrorIs(t, err, ErrDegenerate)
	_, err = Fit1D([]float64{1}, 0.1)
	assert.ErrorIs(t, err, ErrDegenerate)
	_, err = Fit1D(v, 0)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestLogWriters(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	_, err := Fit(normalSet(t, 4, 50))
	require.NoError(t, err)
	assert.Contains(t, diag.String(), "[density] ")

	s, _ := dataset.SampleSetFromRows([][]float64{{0, 0}, {0, 0}, {0, 0}, {0, 0}})
	_, err = Estimate(s, binning.DefaultGrid())
	require.Error(t, err)
	assert.Contains(t, ops.String(), "skipping density estimate")
}
