// Package render draws single diagnostic panels onto explicit panel
// handles. Every renderer takes the panel it draws into and returns the same
// panel, so calls chain without any shared plotting state.
package render

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kode-ml/kode/internal/binning"
)

// ErrShapeMismatch is returned when data does not fit the requested panel.
var ErrShapeMismatch = binning.ErrShapeMismatch

// SeriesKind identifies the primitive a series was drawn with.
type SeriesKind int

const (
	SeriesHistogram SeriesKind = iota
	SeriesLine
	SeriesScatter
	SeriesHeatmap
	SeriesContour
	SeriesMarker
)

func (k SeriesKind) String() string {
	switch k {
	case SeriesHistogram:
		return "histogram"
	case SeriesLine:
		return "line"
	case SeriesScatter:
		return "scatter"
	case SeriesHeatmap:
		return "heatmap"
	case SeriesContour:
		return "contour"
	case SeriesMarker:
		return "marker"
	default:
		return fmt.Sprintf("SeriesKind(%d)", int(k))
	}
}

// Series records one primitive drawn into a panel.
type Series struct {
	Kind   SeriesKind
	Label  string
	Points int
}

type limits struct {
	lo, hi float64
}

// Panel is a handle to a single plot region. It wraps a *plot.Plot and
// keeps a record of what has been drawn into it.
type Panel struct {
	Plot *plot.Plot

	series    []Series
	selection []int
	xlim      *limits
	ylim      *limits
	bare      bool
	failure   error
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{Plot: plot.New()}
}

// Add draws plotters into the panel and records them as a single series.
// A non-empty label adds a legend entry for the first plotter that can draw
// a thumbnail.
func (p *Panel) Add(s Series, ps ...plot.Plotter) {
	p.Plot.Add(ps...)
	p.series = append(p.series, s)
	if s.Label != "" {
		for _, pl := range ps {
			if th, ok := pl.(plot.Thumbnailer); ok {
				p.Plot.Legend.Add(s.Label, th)
				break
			}
		}
	}
	p.applyLimits()
}

// Series returns a copy of the series drawn so far, in drawing order.
func (p *Panel) Series() []Series {
	out := make([]Series, len(p.series))
	copy(out, p.series)
	return out
}

// Count returns the number of series of the given kind.
func (p *Panel) Count(kind SeriesKind) int {
	n := 0
	for _, s := range p.series {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Labels returns the legend labels in drawing order.
func (p *Panel) Labels() []string {
	var out []string
	for _, s := range p.series {
		if s.Label != "" {
			out = append(out, s.Label)
		}
	}
	return out
}

// Selection returns the member indices chosen by the last sampled renderer.
func (p *Panel) Selection() []int {
	out := make([]int, len(p.selection))
	copy(out, p.selection)
	return out
}

// SetXLimits fixes the x range; later series do not widen it.
func (p *Panel) SetXLimits(lo, hi float64) {
	p.xlim = &limits{lo, hi}
	p.applyLimits()
}

// SetYLimits fixes the y range; later series do not widen it.
func (p *Panel) SetYLimits(lo, hi float64) {
	p.ylim = &limits{lo, hi}
	p.applyLimits()
}

func (p *Panel) applyLimits() {
	if p.xlim != nil {
		p.Plot.X.Min, p.Plot.X.Max = p.xlim.lo, p.xlim.hi
	}
	if p.ylim != nil {
		p.Plot.Y.Min, p.Plot.Y.Max = p.ylim.lo, p.ylim.hi
	}
}

// XLimits returns the current x range.
func (p *Panel) XLimits() (lo, hi float64) { return p.Plot.X.Min, p.Plot.X.Max }

// YLimits returns the current y range.
func (p *Panel) YLimits() (lo, hi float64) { return p.Plot.Y.Min, p.Plot.Y.Max }

// SetLabels sets both axis labels.
func (p *Panel) SetLabels(x, y string) {
	p.Plot.X.Label.Text = x
	p.Plot.Y.Label.Text = y
}

// XLabel returns the x axis label.
func (p *Panel) XLabel() string { return p.Plot.X.Label.Text }

// YLabel returns the y axis label.
func (p *Panel) YLabel() string { return p.Plot.Y.Label.Text }

// SetTitle sets the panel title.
func (p *Panel) SetTitle(title string) { p.Plot.Title.Text = title }

// LogY reports whether the y axis is logarithmic.
func (p *Panel) LogY() bool {
	_, ok := p.Plot.Y.Scale.(plot.LogScale)
	return ok
}

func (p *Panel) setLogY() {
	p.Plot.Y.Scale = plot.LogScale{}
	p.Plot.Y.Tick.Marker = plot.LogTicks{Prec: -1}
}

// Strip removes axis lines, ticks and padding for a clean comparison grid.
func (p *Panel) Strip() {
	p.Plot.HideAxes()
	p.Plot.X.Padding = 0
	p.Plot.Y.Padding = 0
	p.bare = true
}

// Bare reports whether axis decoration has been stripped.
func (p *Panel) Bare() bool { return p.bare }

// Fail turns the panel into a placeholder for a child that could not be
// rendered. Anything already drawn is discarded.
func (p *Panel) Fail(err error) *Panel {
	x, y, title := p.XLabel(), p.YLabel(), p.Plot.Title.Text
	p.Plot = plot.New()
	p.series = nil
	p.selection = nil
	p.bare = false
	p.failure = err
	p.SetLabels(x, y)
	p.applyLimits()
	if title == "" {
		title = "n/a"
	}
	p.Plot.Title.Text = title
	return p
}

// Failure returns the error recorded by Fail, or nil.
func (p *Panel) Failure() error { return p.failure }

// Draw draws the panel into c.
func (p *Panel) Draw(c draw.Canvas) { p.Plot.Draw(c) }

// Save writes the panel alone to file; the format follows the extension.
func (p *Panel) Save(w, h vg.Length, file string) error {
	if err := p.Plot.Save(w, h, file); err != nil {
		return fmt.Errorf("failed to save panel: %w", err)
	}
	return nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}
