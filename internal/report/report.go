// Package report renders density fields and loss curves as interactive
// HTML pages with go-echarts. It mirrors the static figures of the compose
// package for quick inspection in a browser.
package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/render"
)

// visualMapSteps is the number of palette stops handed to the visual map.
const visualMapSteps = 10

// Options controls the color mapping of field charts.
type Options struct {
	VMin, VMax float64
	Palette    string
	// Size is the CSS width and height of each chart. Empty selects 600px.
	Size string
}

func (o Options) resolve() Options {
	if o.VMin == 0 && o.VMax == 0 {
		o.VMin, o.VMax = render.DefaultVMin, render.DefaultVMax
	}
	if o.Palette == "" {
		o.Palette = "magma"
	}
	if o.Size == "" {
		o.Size = "600px"
	}
	return o
}

// Page collects charts into a single HTML document.
type Page struct {
	page   *components.Page
	charts int
}

// NewPage returns an empty page with the given document title.
func NewPage(title string) *Page {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.SetLayout(components.PageFlexLayout)
	return &Page{page: page}
}

// Len returns the number of charts on the page.
func (p *Page) Len() int { return p.charts }

// AddField adds a heat map of f.
func (p *Page) AddField(title string, f *density.Field, o Options) error {
	hm, err := FieldChart(title, f, o)
	if err != nil {
		return err
	}
	p.page.AddCharts(hm)
	p.charts++
	return nil
}

// AddFields adds one heat map per field. Nil fields are skipped so a page
// can be built from partially failed Fields results.
func (p *Page) AddFields(titles []string, fields []*density.Field, o Options) error {
	if len(titles) != len(fields) {
		return fmt.Errorf("%w: %d titles for %d fields", render.ErrShapeMismatch, len(titles), len(fields))
	}
	for i, f := range fields {
		if f == nil {
			continue
		}
		if err := p.AddField(titles[i], f, o); err != nil {
			return fmt.Errorf("%s: %w", titles[i], err)
		}
	}
	return nil
}

// AddLoss adds a loss chart.
func (p *Page) AddLoss(c render.LossCurves) error {
	line, err := LossChart(c)
	if err != nil {
		return err
	}
	p.page.AddCharts(line)
	p.charts++
	return nil
}

// Render writes the page as HTML to w.
func (p *Page) Render(w io.Writer) error {
	if p.charts == 0 {
		return fmt.Errorf("report has no charts")
	}
	var buf bytes.Buffer
	if err := p.page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FieldChart builds a heat map of f. Cells are labelled by their centres;
// values outside [VMin, VMax] take the end colors of the palette.
func FieldChart(title string, f *density.Field, o Options) (*charts.HeatMap, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	o = o.resolve()
	stops, err := paletteHex(o.Palette)
	if err != nil {
		return nil, err
	}

	nx, ny := f.Dims()
	xs := make([]string, nx)
	for c := range xs {
		xs[c] = strconv.FormatFloat(f.X(c), 'g', 3, 64)
	}
	ys := make([]string, ny)
	for r := range ys {
		ys[r] = strconv.FormatFloat(f.Y(r), 'g', 3, 64)
	}
	data := make([]opts.HeatMapData, 0, nx*ny)
	for r := 0; r < ny; r++ {
		for c := 0; c < nx; c++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, f.Z(c, r)}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: o.Size, Height: o.Size}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d×%d bins, mass=%.3g", nx, ny, f.Mass())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(o.VMin),
			Max:        float32(o.VMax),
			InRange:    &opts.VisualMapInRange{Color: stops},
		}),
	)
	hm.AddSeries(title, data)
	return hm, nil
}

// LossChart builds a line chart of the loss curves on a logarithmic y axis.
// Each series is plotted against its own epochs.
func LossChart(c render.LossCurves) (*charts.Line, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Loss", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Loss"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Epochs", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "Loss", NameLocation: "middle", NameGap: 40}),
	)

	n := 0
	c.Each(func(label string, epochs, values []float64) {
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: [2]float64{epochs[i], v}}
		}
		line.AddSeries(label, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		n++
	})
	if n == 0 {
		return nil, fmt.Errorf("%w: no loss series", render.ErrShapeMismatch)
	}
	return line, nil
}

// paletteHex samples the named palette into CSS hex colors.
func paletteHex(name string) ([]string, error) {
	pal, err := render.Palette(name, visualMapSteps)
	if err != nil {
		return nil, err
	}
	cs := pal.Colors()
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = hex(c)
	}
	return out, nil
}

func hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
