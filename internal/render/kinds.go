package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
)

// PanelKind selects what a matrix cell draws.
type PanelKind int

const (
	Histogram1DKind PanelKind = iota
	Scatter2DKind
	Heatmap2DKind
	KDEContour2DKind
)

var kindNames = map[PanelKind]string{
	Histogram1DKind:  "histogram",
	Scatter2DKind:    "scatter",
	Heatmap2DKind:    "heatmap",
	KDEContour2DKind: "kde",
}

func (k PanelKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PanelKind(%d)", int(k))
}

// ParsePanelKind is the inverse of PanelKind.String.
func ParsePanelKind(s string) (PanelKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown panel kind %q", s)
}

// Dims returns the number of data columns the kind draws.
func (k PanelKind) Dims() int {
	if k == Histogram1DKind {
		return 1
	}
	return 2
}

// PanelData is the input of a kind renderer. 1D kinds read X only; 2D kinds
// read the points (X[i], Y[i]).
type PanelData struct {
	X, Y []float64
}

// Range is a closed axis interval. The zero Range leaves the axis to
// autoscale.
type Range struct {
	Min, Max float64
}

// IsZero reports whether r is unset.
func (r Range) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// Params are the drawing parameters shared by the kind renderers. Zero
// fields select defaults.
type Params struct {
	// XEdges and YEdges are the histogram bins. Nil selects the 2D default
	// grid for 2D kinds and the 1D default bins for Histogram1D.
	XEdges, YEdges binning.EdgeSequence
	// XRange and YRange fix the axis limits.
	XRange, YRange Range

	VMin, VMax float64
	Palette    string
	// Strip hides axis decoration on heat maps.
	Strip bool

	Bandwidth  density.Bandwidth
	MeshPoints int
	// Levels are the percentiles of the KDE field drawn as contour lines.
	Levels []float64

	Color color.Color
}

// Renderer draws one panel kind.
type Renderer interface {
	Kind() PanelKind
	Render(p *Panel, data PanelData, params Params) error
}

// ForKind returns the renderer of kind.
func ForKind(kind PanelKind) (Renderer, error) {
	switch kind {
	case Histogram1DKind:
		return histogram1D{}, nil
	case Scatter2DKind:
		return scatter2D{}, nil
	case Heatmap2DKind:
		return heatmap2D{}, nil
	case KDEContour2DKind:
		return kdeContour2D{}, nil
	default:
		return nil, fmt.Errorf("no renderer for %v", kind)
	}
}

func checkData(kind PanelKind, d PanelData) error {
	switch kind.Dims() {
	case 1:
		if d.Y != nil {
			return fmt.Errorf("%w: %v takes 1D data", ErrShapeMismatch, kind)
		}
	default:
		if d.Y == nil {
			return fmt.Errorf("%w: %v takes 2D data", ErrShapeMismatch, kind)
		}
		if len(d.X) != len(d.Y) {
			return fmt.Errorf("%w: %d x values, %d y values", ErrShapeMismatch, len(d.X), len(d.Y))
		}
	}
	return nil
}

func applyRanges(p *Panel, params Params) {
	if !params.XRange.IsZero() {
		p.SetXLimits(params.XRange.Min, params.XRange.Max)
	}
	if !params.YRange.IsZero() {
		p.SetYLimits(params.YRange.Min, params.YRange.Max)
	}
}

type histogram1D struct{}

func (histogram1D) Kind() PanelKind { return Histogram1DKind }

func (r histogram1D) Render(p *Panel, data PanelData, params Params) error {
	if err := checkData(r.Kind(), data); err != nil {
		return err
	}
	_, err := Histogram1D(p, data.X, params)
	return err
}

// Histogram1D draws the density histogram of values over params.XEdges.
func Histogram1D(p *Panel, values []float64, params Params) (*Panel, error) {
	edges, err := binning.Resolve(params.XEdges, binning.Default1D())
	if err != nil {
		return p, err
	}
	fill := params.Color
	if fill == nil {
		fill = seriesColors(1)[0]
	}
	h, err := densityHistogram(values, edges, fill)
	if err != nil {
		return p, err
	}
	p.Add(Series{Kind: SeriesHistogram, Points: len(values)}, h)
	applyRanges(p, params)
	return p, nil
}

type scatter2D struct{}

func (scatter2D) Kind() PanelKind { return Scatter2DKind }

func (r scatter2D) Render(p *Panel, data PanelData, params Params) error {
	if err := checkData(r.Kind(), data); err != nil {
		return err
	}
	_, err := Scatter2D(p, data.X, data.Y, params)
	return err
}

// Scatter2D draws the raw points as faint dots.
func Scatter2D(p *Panel, x, y []float64, params Params) (*Panel, error) {
	if len(x) != len(y) {
		return p, fmt.Errorf("%w: %d x values, %d y values", ErrShapeMismatch, len(x), len(y))
	}
	c := params.Color
	if c == nil {
		c = withAlpha(black, 0.1)
	}
	if len(x) > 0 {
		sc, err := plotter.NewScatter(xys(x, y))
		if err != nil {
			return p, err
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: c, Radius: vg.Points(0.5), Shape: draw.CircleGlyph{}}
		p.Add(Series{Kind: SeriesScatter, Points: len(x)}, sc)
	}
	applyRanges(p, params)
	return p, nil
}

type heatmap2D struct{}

func (heatmap2D) Kind() PanelKind { return Heatmap2DKind }

func (r heatmap2D) Render(p *Panel, data PanelData, params Params) error {
	if err := checkData(r.Kind(), data); err != nil {
		return err
	}
	g, err := binning.ResolveGrid(params.XEdges, params.YEdges)
	if err != nil {
		return err
	}
	f, err := density.Histogram(data.X, data.Y, g)
	if err != nil {
		return err
	}
	_, err = HeatmapField(p, f, HeatmapOptions{
		VMin:    params.VMin,
		VMax:    params.VMax,
		Palette: params.Palette,
		Axis:    !params.Strip,
	})
	if err != nil {
		return err
	}
	applyRanges(p, params)
	return nil
}

type kdeContour2D struct{}

func (kdeContour2D) Kind() PanelKind { return KDEContour2DKind }

func (r kdeContour2D) Render(p *Panel, data PanelData, params Params) error {
	if err := checkData(r.Kind(), data); err != nil {
		return err
	}
	s, err := dataset.SampleSetFromColumns(data.X, data.Y)
	if err != nil {
		return err
	}
	_, err = KDEContour2D(p, s, params)
	return err
}

// DefaultContourLevels are the field percentiles drawn as contour lines.
var DefaultContourLevels = []float64{50, 75, 90, 95, 99}

// KDEContour2D fits a Gaussian KDE to a 2D sample set and draws it as a
// filled raster with contour lines over a square mesh. The mesh spans
// params.XRange × params.YRange when set, otherwise the extent of the edges.
// A degenerate sample set leaves the panel untouched and returns the error.
func KDEContour2D(p *Panel, samples dataset.SampleSet, params Params) (*Panel, error) {
	if samples.Dim() != 2 {
		return p, fmt.Errorf("%w: KDE contour needs 2D samples, got %d columns", ErrShapeMismatch, samples.Dim())
	}
	var opts []density.Option
	if params.Bandwidth != nil {
		opts = append(opts, density.WithBandwidth(params.Bandwidth))
	}
	k, err := density.Fit(samples, opts...)
	if err != nil {
		return p, err
	}
	g, err := meshGrid(params)
	if err != nil {
		return p, err
	}
	f, err := k.Evaluate(g)
	if err != nil {
		return p, err
	}
	return ContourField(p, f, params)
}

// ContourField draws a precomputed field as a filled raster with contour
// lines at params.Levels percentiles.
func ContourField(p *Panel, f *density.Field, params Params) (*Panel, error) {
	name := params.Palette
	if name == "" {
		name = "oranges"
	}
	pal, err := Palette(name, paletteSize)
	if err != nil {
		return p, err
	}
	percentiles := params.Levels
	if len(percentiles) == 0 {
		percentiles = DefaultContourLevels
	}
	levels, err := f.Levels(percentiles...)
	if err != nil {
		return p, err
	}

	c, r := f.Dims()
	hm := plotter.NewHeatMap(f, pal)
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(Series{Kind: SeriesHeatmap, Points: c * r}, hm)

	if len(levels) > 0 {
		ct := plotter.NewContour(f, levels, nil)
		ct.LineStyles = []draw.LineStyle{{Color: pal.Colors()[paletteSize-1], Width: vg.Points(0.75)}}
		p.Add(Series{Kind: SeriesContour, Points: len(levels)}, ct)
	}

	xr, yr := params.XRange, params.YRange
	if xr.IsZero() {
		xr = Range{f.Grid.X.Min(), f.Grid.X.Max()}
	}
	if yr.IsZero() {
		yr = Range{f.Grid.Y.Min(), f.Grid.Y.Max()}
	}
	p.SetXLimits(xr.Min, xr.Max)
	p.SetYLimits(yr.Min, yr.Max)
	return p, nil
}

// meshGrid returns the grid whose cell centres are MeshPoints evenly spaced
// values spanning each axis range, inclusive of both ends.
func meshGrid(params Params) (binning.Grid, error) {
	n := params.MeshPoints
	if n == 0 {
		n = 100
	}
	if n < 2 {
		return binning.Grid{}, fmt.Errorf("%w: mesh needs at least 2 points, got %d", binning.ErrInvalidBinning, n)
	}
	axis := func(r Range, edges binning.EdgeSequence) (binning.EdgeSequence, error) {
		if r.IsZero() {
			e, err := binning.Resolve(edges, binning.Default2D())
			if err != nil {
				return nil, err
			}
			r = Range{e.Min(), e.Max()}
		}
		if !(r.Max > r.Min) {
			return nil, fmt.Errorf("%w: empty range [%g, %g]", binning.ErrInvalidBinning, r.Min, r.Max)
		}
		h := (r.Max - r.Min) / float64(n-1)
		return binning.Linspace(r.Min-h/2, r.Max+h/2, n+1)
	}
	x, err := axis(params.XRange, params.XEdges)
	if err != nil {
		return binning.Grid{}, err
	}
	y, err := axis(params.YRange, params.YEdges)
	if err != nil {
		return binning.Grid{}, err
	}
	return binning.Grid{X: x, Y: y}, nil
}

// Crosshair marks a true parameter value. A single coordinate draws a
// heavy dashed vertical line; two draw a ringed "Truth" marker at (x, y).
func Crosshair(p *Panel, truth ...float64) (*Panel, error) {
	switch len(truth) {
	case 1:
		x := truth[0]
		lo, hi := p.YLimits()
		if !(hi > lo) {
			lo, hi = 0, 1
		}
		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: lo}, {X: x, Y: hi}})
		if err != nil {
			return p, err
		}
		line.LineStyle = draw.LineStyle{Color: black, Width: vg.Points(2.5), Dashes: []vg.Length{vg.Points(8), vg.Points(4)}}
		p.Add(Series{Kind: SeriesMarker, Points: 1}, line)
	case 2:
		pt := plotter.XYs{{X: truth[0], Y: truth[1]}}
		face, err := plotter.NewScatter(pt)
		if err != nil {
			return p, err
		}
		face.GlyphStyle = draw.GlyphStyle{Color: white, Radius: vg.Points(5), Shape: draw.CircleGlyph{}}
		edge, err := plotter.NewScatter(pt)
		if err != nil {
			return p, err
		}
		edge.GlyphStyle = draw.GlyphStyle{Color: black, Radius: vg.Points(5), Shape: draw.RingGlyph{}}
		p.Add(Series{Kind: SeriesMarker, Label: "Truth", Points: 1}, face, edge)
	default:
		return p, fmt.Errorf("%w: truth marker takes 1 or 2 coordinates, got %d", ErrShapeMismatch, len(truth))
	}
	return p, nil
}
