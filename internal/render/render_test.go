package render

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/sampler"
	"github.com/kode-ml/kode/internal/testutil"
)

func TestDistributionOverlay(t *testing.T) {
	ref := testutil.NormalValues(1, 1000)
	target := testutil.UniformValues(2, 1000, -1, 1)
	pred := testutil.NormalValues(3, 1000)

	p, err := Distribution(NewPanel(), ref, target, pred, OverlayOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, p.Count(SeriesHistogram))
	assert.Equal(t, []string{"reference", "target", "predictions"}, p.Labels())
	lo, hi := p.XLimits()
	assert.Equal(t, -10.0, lo)
	assert.Equal(t, 10.0, hi)
	lo, hi = p.YLimits()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	assert.Equal(t, "x", p.XLabel())
	assert.Equal(t, "P(x)", p.YLabel())
}

func TestDistributionSkipsMissingSets(t *testing.T) {
	p, err := Distribution(NewPanel(), testutil.NormalValues(1, 100), nil, testutil.NormalValues(2, 100), OverlayOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"reference", "predictions"}, p.Labels())

	_, err = Distribution(NewPanel(), nil, nil, nil, OverlayOptions{Edges: binning.EdgeSequence{1}})
	assert.ErrorIs(t, err, binning.ErrInvalidBinning)
}

func lossFixture() LossCurves {
	var c LossCurves
	for e := 1; e <= 100; e++ {
		x := float64(e)
		c.TrainEpochs = append(c.TrainEpochs, x)
		c.Train = append(c.Train, math.Exp(-x/20))
		c.RKHS = append(c.RKHS, 1+1/x)
		c.H1 = append(c.H1, 2+1/x)
	}
	for e := 10; e <= 100; e += 10 {
		x := float64(e)
		c.TestEpochs = append(c.TestEpochs, x)
		c.Test = append(c.Test, 1.5*math.Exp(-x/20))
	}
	return c
}

func TestLossCurves(t *testing.T) {
	p, err := Loss(NewPanel(), lossFixture())
	require.NoError(t, err)

	assert.True(t, p.LogY())
	assert.Equal(t, 4, p.Count(SeriesLine))
	assert.Equal(t, []string{"Train MMD loss", "RKHS norm", "H1 norm", "Test MMD loss"}, p.Labels())
	assert.Equal(t, "Epochs", p.XLabel())
	assert.Equal(t, "Loss", p.YLabel())

	// Drawn as given: no resampling onto a common epoch axis.
	var points []int
	for _, s := range p.Series() {
		points = append(points, s.Points)
	}
	if diff := cmp.Diff([]int{100, 100, 100, 10}, points); diff != "" {
		t.Errorf("series lengths (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	w, err := p.Plot.WriterTo(vg.Points(300), vg.Points(200), "png")
	require.NoError(t, err)
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestLossRejectsBadSeries(t *testing.T) {
	c := lossFixture()
	c.Test = c.Test[:5]
	_, err := Loss(NewPanel(), c)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	c = lossFixture()
	c.H1[3] = 0
	p, err := Loss(NewPanel(), c)
	assert.ErrorIs(t, err, ErrLogDomain)
	assert.Empty(t, p.Series(), "nothing is drawn when validation fails")
}

func TestTrajectoryLines(t *testing.T) {
	tr := testutil.Trajectory(t, 1, 12, 25, 1)
	ts := make([]float64, tr.Steps())
	for i := range ts {
		ts[i] = float64(i) / float64(len(ts)-1)
	}

	p, err := Trajectory(NewPanel(), tr.Slice(0), ts)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Count(SeriesLine))
	assert.Equal(t, "input / output", p.XLabel())
	assert.Equal(t, "time / depth", p.YLabel())

	_, err = Trajectory(NewPanel(), tr.Slice(0), ts[:3])
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestTrajectories2DDeterministic(t *testing.T) {
	tr := testutil.Trajectory(t, 1, 50, 1000, 2)

	a, err := Trajectories2D(NewPanel(), tr, 20, 20)
	require.NoError(t, err)
	b, err := Trajectories2D(NewPanel(), tr, 20, 20)
	require.NoError(t, err)
	c, err := Trajectories2D(NewPanel(), tr, 20, 21)
	require.NoError(t, err)

	require.Len(t, a.Selection(), 20)
	if diff := cmp.Diff(a.Selection(), b.Selection()); diff != "" {
		t.Errorf("same seed chose different members (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, a.Selection(), c.Selection())

	assert.Equal(t, 20, a.Count(SeriesLine))
	assert.Equal(t, 2, a.Count(SeriesMarker))
	assert.Equal(t, []string{"target", "reference"}, a.Labels())
	for _, s := range a.Series() {
		if s.Kind == SeriesLine {
			assert.Equal(t, 50, s.Points)
		}
	}
}

func TestTrajectories2DDrawsNothingForZeroPoints(t *testing.T) {
	tr := testutil.Trajectory(t, 2, 5, 10, 2)
	p, err := Trajectories2D(NewPanel(), tr, 0, 20)
	require.NoError(t, err)
	assert.Zero(t, p.Count(SeriesLine))
	assert.Zero(t, p.Count(SeriesMarker))
	assert.Empty(t, p.Selection())
}

func TestTrajectories2DErrors(t *testing.T) {
	tr := testutil.Trajectory(t, 2, 5, 10, 2)
	_, err := Trajectories2D(NewPanel(), tr, 11, 20)
	assert.ErrorIs(t, err, sampler.ErrSampleSizeUnderflow)

	tr3 := testutil.Trajectory(t, 2, 5, 10, 3)
	_, err = Trajectories2D(NewPanel(), tr3, 2, 20)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestHeatmap2D(t *testing.T) {
	s := testutil.NormalSamples(4, 2000, 2)

	p, err := Heatmap2D(NewPanel(), s, binning.DefaultGrid(), DefaultHeatmapOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Count(SeriesHeatmap))
	assert.True(t, p.Bare())
	lo, hi := p.XLimits()
	assert.Equal(t, -4.0, lo)
	assert.Equal(t, 4.0, hi)

	p, err = Heatmap2D(NewPanel(), s, binning.DefaultGrid(), HeatmapOptions{Axis: true, Palette: "blackbody"})
	require.NoError(t, err)
	assert.False(t, p.Bare())

	_, err = Heatmap2D(NewPanel(), testutil.NormalSamples(4, 10, 1), binning.DefaultGrid(), HeatmapOptions{})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Heatmap2D(NewPanel(), s, binning.DefaultGrid(), HeatmapOptions{VMin: 0.2, VMax: 0.1})
	assert.Error(t, err)

	_, err = Heatmap2D(NewPanel(), s, binning.DefaultGrid(), HeatmapOptions{Palette: "viridis"})
	assert.Error(t, err)
}

func TestConditionalDensity(t *testing.T) {
	p, err := ConditionalDensity(NewPanel(), testutil.NormalValues(5, 500), testutil.NormalValues(6, 500), ConditionalOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"True", "Predicted"}, p.Labels())
	assert.Equal(t, "u", p.XLabel())
	assert.Equal(t, "P(u)", p.YLabel())

	_, err = ConditionalDensity(NewPanel(), []float64{1, 1, 1}, testutil.NormalValues(6, 50), ConditionalOptions{})
	assert.ErrorIs(t, err, density.ErrDegenerate)
}

func TestPanelKinds(t *testing.T) {
	for _, kind := range []PanelKind{Histogram1DKind, Scatter2DKind, Heatmap2DKind, KDEContour2DKind} {
		r, err := ForKind(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, r.Kind())

		parsed, err := ParsePanelKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err := ForKind(PanelKind(42))
	assert.Error(t, err)
	_, err = ParsePanelKind("violin")
	assert.Error(t, err)
}

func TestKindRenderersCheckShape(t *testing.T) {
	x := testutil.NormalValues(1, 50)
	y := testutil.NormalValues(2, 50)

	tests := []struct {
		kind PanelKind
		data PanelData
	}{
		{Histogram1DKind, PanelData{X: x, Y: y}},
		{Scatter2DKind, PanelData{X: x}},
		{Heatmap2DKind, PanelData{X: x}},
		{KDEContour2DKind, PanelData{X: x, Y: y[:10]}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			r, err := ForKind(tt.kind)
			require.NoError(t, err)
			err = r.Render(NewPanel(), tt.data, Params{})
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestKDEContourRenderer(t *testing.T) {
	s := testutil.NormalSamples(8, 400, 2)
	r, err := ForKind(KDEContour2DKind)
	require.NoError(t, err)

	p := NewPanel()
	params := Params{XRange: Range{-3, 3}, YRange: Range{-2, 2}, MeshPoints: 40}
	require.NoError(t, r.Render(p, PanelData{X: s.Col(0), Y: s.Col(1)}, params))
	assert.Equal(t, 1, p.Count(SeriesHeatmap))
	assert.Equal(t, 1, p.Count(SeriesContour))
	lo, hi := p.XLimits()
	assert.Equal(t, -3.0, lo)
	assert.Equal(t, 3.0, hi)
	lo, hi = p.YLimits()
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 2.0, hi)
}

func TestKDEContourDegenerate(t *testing.T) {
	x := testutil.NormalValues(1, 100)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 3 * x[i]
	}
	p := NewPanel()
	r, err := ForKind(KDEContour2DKind)
	require.NoError(t, err)
	err = r.Render(p, PanelData{X: x, Y: y}, Params{})
	assert.ErrorIs(t, err, density.ErrDegenerate)
	assert.Empty(t, p.Series())
}

func TestMeshGridCentres(t *testing.T) {
	g, err := meshGrid(Params{XRange: Range{0, 10}, MeshPoints: 11})
	require.NoError(t, err)
	want, err := binning.Linspace(0, 10, 11)
	require.NoError(t, err)
	got := g.X.Centers()
	require.Len(t, got, 11)
	for i := range got {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
	// Unset ranges fall back to the default 2D extent.
	assert.InDelta(t, -4.0, g.Y.Centers()[0], 1e-12)

	_, err = meshGrid(Params{MeshPoints: 1})
	assert.ErrorIs(t, err, binning.ErrInvalidBinning)
}

func TestHistogramAndCrosshair(t *testing.T) {
	p, err := Histogram1D(NewPanel(), testutil.NormalValues(3, 300), Params{XRange: Range{-5, 5}})
	require.NoError(t, err)
	_, err = Crosshair(p, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Count(SeriesHistogram))
	assert.Equal(t, 1, p.Count(SeriesMarker))

	q, err := Scatter2D(NewPanel(), []float64{0, 1}, []float64{1, 0}, Params{})
	require.NoError(t, err)
	_, err = Crosshair(q, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Truth"}, q.Labels())

	_, err = Crosshair(q, 1, 2, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPalettes(t *testing.T) {
	for _, name := range []string{"magma", "oranges", "blackbody", "kindlmann"} {
		pal, err := Palette(name, 16)
		require.NoError(t, err, name)
		assert.Len(t, pal.Colors(), 16, name)
	}
	_, err := Palette("viridis", 16)
	assert.Error(t, err)
	_, err = Palette("magma", 1)
	assert.Error(t, err)

	brightness := func(name string, i int) uint32 {
		pal, err := Palette(name, 8)
		require.NoError(t, err)
		r, g, b, _ := pal.Colors()[i].RGBA()
		return r + g + b
	}
	assert.Less(t, brightness("magma", 0), brightness("magma", 7), "magma runs dark to light")
	assert.Greater(t, brightness("oranges", 0), brightness("oranges", 7), "oranges runs light to dark")
}

func TestPanelFail(t *testing.T) {
	p, err := Distribution(NewPanel(), testutil.NormalValues(1, 100), nil, nil, OverlayOptions{})
	require.NoError(t, err)

	boom := errors.New("boom")
	p.Fail(boom)
	assert.Empty(t, p.Series())
	assert.Same(t, boom, p.Failure())
	assert.Equal(t, "x", p.XLabel(), "labels survive so the layout is unchanged")
	lo, hi := p.XLimits()
	assert.Equal(t, -10.0, lo)
	assert.Equal(t, 10.0, hi)
}

func TestSeriesKindString(t *testing.T) {
	assert.Equal(t, "heatmap", SeriesHeatmap.String())
	assert.Equal(t, "SeriesKind(9)", SeriesKind(9).String())
}
