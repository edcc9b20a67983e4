package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/sampler"
)

// ErrLogDomain is returned when a series drawn on a logarithmic axis holds a
// value that is not strictly positive and finite.
var ErrLogDomain = errors.New("value outside logarithmic axis domain")

// Default color range of 2D density heat maps.
const (
	DefaultVMin = 0
	DefaultVMax = 0.15
)

// DefaultConditionalFactor is the bandwidth factor of conditional density
// curves.
const DefaultConditionalFactor = 0.1

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// OverlayOptions configures Distribution. The zero value draws 100 bins
// over [-10, 10] with the y axis fixed to [0, 1].
type OverlayOptions struct {
	Edges binning.EdgeSequence
	YMax  float64
}

// Distribution overlays density histograms of up to three 1D sample sets on
// shared bins. Empty sets are skipped. The axes are fixed to the bin range
// and [0, YMax] whatever the data, so overlays from different runs compare
// directly.
func Distribution(p *Panel, reference, target, prediction []float64, opts OverlayOptions) (*Panel, error) {
	edges, err := binning.Resolve(opts.Edges, binning.Default1D())
	if err != nil {
		return p, err
	}
	ymax := opts.YMax
	if ymax == 0 {
		ymax = 1
	}

	palette := seriesColors(3)
	sets := []struct {
		label  string
		values []float64
		fill   color.Color
	}{
		{"reference", reference, palette[0]},
		{"target", target, palette[1]},
		{"predictions", prediction, withAlpha(palette[2], 0.6)},
	}
	for _, s := range sets {
		if len(s.values) == 0 {
			continue
		}
		h, err := densityHistogram(s.values, edges, s.fill)
		if err != nil {
			return p, fmt.Errorf("%s: %w", s.label, err)
		}
		p.Add(Series{Kind: SeriesHistogram, Label: s.label, Points: len(s.values)}, h)
	}

	p.SetXLimits(edges.Min(), edges.Max())
	p.SetYLimits(0, ymax)
	p.SetLabels("x", "P(x)")
	p.Plot.Legend.Top = true
	return p, nil
}

func densityHistogram(values []float64, edges binning.EdgeSequence, fill color.Color) (*plotter.Histogram, error) {
	dens, err := binning.Density1D(values, edges)
	if err != nil {
		return nil, err
	}
	bins := make([]plotter.HistogramBin, len(dens))
	for i, d := range dens {
		bins[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1], Weight: d}
	}
	return &plotter.Histogram{
		Bins:      bins,
		Width:     edges.Width(0),
		FillColor: fill,
		LineStyle: draw.LineStyle{Color: fill, Width: 0},
	}, nil
}

// LossCurves holds per-epoch training metrics. Train, RKHS and H1 are
// sampled at TrainEpochs; Test is sampled at TestEpochs. Nil series are
// skipped.
type LossCurves struct {
	TrainEpochs []float64
	Train       []float64
	RKHS        []float64
	H1          []float64

	TestEpochs []float64
	Test       []float64
}

type lossSeries struct {
	label  string
	epochs []float64
	values []float64
}

func (c LossCurves) series() []lossSeries {
	return []lossSeries{
		{"Train MMD loss", c.TrainEpochs, c.Train},
		{"RKHS norm", c.TrainEpochs, c.RKHS},
		{"H1 norm", c.TrainEpochs, c.H1},
		{"Test MMD loss", c.TestEpochs, c.Test},
	}
}

// Validate checks that every present series matches its epochs and is
// strictly positive, as a logarithmic axis requires.
func (c LossCurves) Validate() error {
	for _, s := range c.series() {
		if s.values == nil {
			continue
		}
		if len(s.values) != len(s.epochs) {
			return fmt.Errorf("%w: %s has %d values for %d epochs", ErrShapeMismatch, s.label, len(s.values), len(s.epochs))
		}
		for i, v := range s.values {
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s[%d] = %g", ErrLogDomain, s.label, i, v)
			}
		}
	}
	return nil
}

// Each calls fn for every present series in legend order.
func (c LossCurves) Each(fn func(label string, epochs, values []float64)) {
	for _, s := range c.series() {
		if s.values != nil {
			fn(s.label, s.epochs, s.values)
		}
	}
}

// Loss draws the loss curves on a logarithmic y axis. Train and test series
// keep their own epoch cadence; nothing is interpolated.
func Loss(p *Panel, c LossCurves) (*Panel, error) {
	if err := c.Validate(); err != nil {
		return p, err
	}
	series := c.series()

	palette := seriesColors(len(series))
	for i, s := range series {
		if s.values == nil {
			continue
		}
		line, err := plotter.NewLine(xys(s.epochs, s.values))
		if err != nil {
			return p, fmt.Errorf("%s: %w", s.label, err)
		}
		line.Color = palette[i]
		line.Width = vg.Points(1)
		p.Add(Series{Kind: SeriesLine, Label: s.label, Points: len(s.values)}, line)
	}

	p.setLogY()
	p.SetLabels("Epochs", "Loss")
	p.Plot.Legend.Top = true
	p.Plot.Legend.Left = false
	p.Plot.Legend.XOffs = -10
	p.Plot.Legend.YOffs = -10
	return p, nil
}

// Trajectory draws every member of a trajectory slice as a thin blue line,
// state on the x axis against time or depth on the y axis. slice holds one
// row per member with one value per entry of ts.
func Trajectory(p *Panel, slice [][]float64, ts []float64) (*Panel, error) {
	for m, row := range slice {
		if len(row) != len(ts) {
			return p, fmt.Errorf("%w: member %d has %d steps, want %d", ErrShapeMismatch, m, len(row), len(ts))
		}
	}
	for _, row := range slice {
		line, err := plotter.NewLine(xys(row, ts))
		if err != nil {
			return p, err
		}
		line.Color = blue
		line.Width = vg.Points(0.5)
		p.Add(Series{Kind: SeriesLine, Points: len(row)}, line)
	}
	p.SetLabels("input / output", "time / depth")
	return p, nil
}

// HeatmapOptions configures 2D density heat maps. VMin and VMax fix the
// color scale so panels stay comparable; both zero selects [0, 0.15].
// Axis keeps the axis decoration, which is stripped by default.
type HeatmapOptions struct {
	VMin, VMax float64
	Palette    string
	Axis       bool
}

// DefaultHeatmapOptions returns the options used when none are supplied.
func DefaultHeatmapOptions() HeatmapOptions {
	return HeatmapOptions{VMin: DefaultVMin, VMax: DefaultVMax, Palette: "magma"}
}

func (o HeatmapOptions) resolve() (HeatmapOptions, error) {
	if o.VMin == 0 && o.VMax == 0 {
		o.VMin, o.VMax = DefaultVMin, DefaultVMax
	}
	if o.Palette == "" {
		o.Palette = "magma"
	}
	if !(o.VMax > o.VMin) {
		return o, fmt.Errorf("invalid color range [%g, %g]", o.VMin, o.VMax)
	}
	return o, nil
}

// Heatmap2D draws the empirical density of a 2D sample set over g.
func Heatmap2D(p *Panel, samples dataset.SampleSet, g binning.Grid, opts HeatmapOptions) (*Panel, error) {
	if samples.Dim() != 2 {
		return p, fmt.Errorf("%w: heat map needs 2D samples, got %d columns", ErrShapeMismatch, samples.Dim())
	}
	f, err := density.Histogram(samples.Col(0), samples.Col(1), g)
	if err != nil {
		return p, err
	}
	return HeatmapField(p, f, opts)
}

// HeatmapField draws a precomputed density field. Values outside the color
// range are clamped to the end colors of the palette.
func HeatmapField(p *Panel, f *density.Field, opts HeatmapOptions) (*Panel, error) {
	opts, err := opts.resolve()
	if err != nil {
		return p, err
	}
	if err := f.Validate(); err != nil {
		return p, err
	}
	pal, err := Palette(opts.Palette, paletteSize)
	if err != nil {
		return p, err
	}

	hm := plotter.NewHeatMap(f, pal)
	hm.Min, hm.Max = opts.VMin, opts.VMax
	cs := pal.Colors()
	hm.Underflow = cs[0]
	hm.Overflow = cs[len(cs)-1]

	c, r := f.Dims()
	p.Add(Series{Kind: SeriesHeatmap, Points: c * r}, hm)
	p.SetXLimits(f.Grid.X.Min(), f.Grid.X.Max())
	p.SetYLimits(f.Grid.Y.Min(), f.Grid.Y.Max())
	if !opts.Axis {
		p.Strip()
	}
	return p, nil
}

// Trajectories2D draws the paths of numPoints trajectory members chosen
// deterministically from seed. Each path is a red line; the final positions
// are marked as filled "target" points and the initial ones as hollow
// "reference" rings. numPoints == 0 draws nothing.
func Trajectories2D(p *Panel, traj dataset.Trajectory, numPoints int, seed uint64) (*Panel, error) {
	if traj.Coords() != 2 {
		return p, fmt.Errorf("%w: 2D trajectory overlay needs 2 coordinates, got %d", ErrShapeMismatch, traj.Coords())
	}
	idx, err := sampler.Choose(seed, traj.Members(), numPoints)
	if err != nil {
		return p, err
	}
	if len(idx) > 0 && traj.Steps() == 0 {
		return p, fmt.Errorf("%w: trajectory has no steps", ErrShapeMismatch)
	}
	p.selection = idx
	if len(idx) == 0 {
		return p, nil
	}

	for _, m := range idx {
		pts := make(plotter.XYs, traj.Steps())
		for t := range pts {
			pts[t].X = traj.At(t, m, 0)
			pts[t].Y = traj.At(t, m, 1)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return p, fmt.Errorf("member %d: %w", m, err)
		}
		line.Color = red
		line.Width = vg.Points(1)
		p.Add(Series{Kind: SeriesLine, Points: len(pts)}, line)
	}

	last := traj.Steps() - 1
	markers := []struct {
		label string
		step  int
		shape draw.GlyphDrawer
	}{
		{"target", last, draw.CircleGlyph{}},
		{"reference", 0, draw.RingGlyph{}},
	}
	for _, mk := range markers {
		pts := make(plotter.XYs, len(idx))
		for i, m := range idx {
			pts[i].X = traj.At(mk.step, m, 0)
			pts[i].Y = traj.At(mk.step, m, 1)
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return p, fmt.Errorf("%s markers: %w", mk.label, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: black, Radius: vg.Points(2.5), Shape: mk.shape}
		p.Add(Series{Kind: SeriesMarker, Label: mk.label, Points: len(pts)}, sc)
	}
	return p, nil
}

// ConditionalOptions configures ConditionalDensity. Zero values select the
// labels "True" and "Predicted", a bandwidth factor of 0.1 and 200 support
// points per curve.
type ConditionalOptions struct {
	Labels  [2]string
	Factor  float64
	Support int
}

// ConditionalDensity overlays 1D kernel density estimates of true and
// predicted values: a solid red line for the former, a thick dashed red line
// for the latter.
func ConditionalDensity(p *Panel, yTrue, yPred []float64, opts ConditionalOptions) (*Panel, error) {
	if opts.Labels == [2]string{} {
		opts.Labels = [2]string{"True", "Predicted"}
	}
	if opts.Factor == 0 {
		opts.Factor = DefaultConditionalFactor
	}
	if opts.Support == 0 {
		opts.Support = 200
	}

	styles := []draw.LineStyle{
		{Color: red, Width: vg.Points(1)},
		{Color: red, Width: vg.Points(4), Dashes: []vg.Length{vg.Points(12), vg.Points(6)}},
	}
	for i, values := range [][]float64{yTrue, yPred} {
		k, err := density.Fit1D(values, opts.Factor)
		if err != nil {
			return p, fmt.Errorf("%s: %w", opts.Labels[i], err)
		}
		xs := k.Support(opts.Support, 3)
		line, err := plotter.NewLine(xys(xs, k.Evaluate(xs)))
		if err != nil {
			return p, fmt.Errorf("%s: %w", opts.Labels[i], err)
		}
		line.LineStyle = styles[i]
		p.Add(Series{Kind: SeriesLine, Label: opts.Labels[i], Points: len(xs)}, line)
	}
	p.SetLabels("u", "P(u)")
	p.Plot.Legend.Top = true
	return p, nil
}
