// Package compose lays single panels out into figures: a one-row triptych
// of heat maps and a lower-triangular pairwise-marginal matrix. Every
// composer is a single pass from sample sets and layout options to a
// Figure owned by the caller.
package compose

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/kode-ml/kode/internal/fsutil"
	"github.com/kode-ml/kode/internal/render"
)

// PanelFailure records a child panel that was replaced by a placeholder.
type PanelFailure struct {
	Row, Col int
	Err      error
}

func (f PanelFailure) Error() string {
	return fmt.Sprintf("panel (%d, %d): %v", f.Row, f.Col, f.Err)
}

func (f PanelFailure) Unwrap() error { return f.Err }

// Figure is a rows × cols grid of panels. Empty cells hold nil.
type Figure struct {
	Title         string
	Width, Height vg.Length

	rows, cols int
	panels     [][]*render.Panel
	failures   []PanelFailure
}

// NewFigure returns an empty figure with square cells of the given size.
func NewFigure(rows, cols int, cell vg.Length) *Figure {
	panels := make([][]*render.Panel, rows)
	for i := range panels {
		panels[i] = make([]*render.Panel, cols)
	}
	return &Figure{
		Width:  vg.Length(cols) * cell,
		Height: vg.Length(rows) * cell,
		rows:   rows,
		cols:   cols,
		panels: panels,
	}
}

// Dims returns the number of rows and columns.
func (f *Figure) Dims() (rows, cols int) { return f.rows, f.cols }

// At returns the panel at row i, column j, or nil for an empty cell.
func (f *Figure) At(i, j int) *render.Panel { return f.panels[i][j] }

// Set places p at row i, column j.
func (f *Figure) Set(i, j int, p *render.Panel) { f.panels[i][j] = p }

// Panels returns the non-empty panels in row-major order.
func (f *Figure) Panels() []*render.Panel {
	var out []*render.Panel
	for _, row := range f.panels {
		for _, p := range row {
			if p != nil {
				out = append(out, p)
			}
		}
	}
	return out
}

// Count returns the number of non-empty panels.
func (f *Figure) Count() int { return len(f.Panels()) }

// Failures returns the child panels that could not be rendered.
func (f *Figure) Failures() []PanelFailure {
	out := make([]PanelFailure, len(f.failures))
	copy(out, f.failures)
	return out
}

func (f *Figure) fail(i, j int, err error) {
	f.failures = append(f.failures, PanelFailure{Row: i, Col: j, Err: err})
	f.panels[i][j].Fail(err)
	opsf("panel (%d, %d) replaced by placeholder: %v", i, j, err)
}

// Draw draws the title and every panel into c, aligning the data areas of
// panels that share a row or column.
func (f *Figure) Draw(c draw.Canvas) {
	c.SetColor(color.White)
	c.Fill(c.Rectangle.Path())

	if f.Title != "" {
		sty := plot.New().Title.TextStyle
		sty.Font.Size = vg.Points(16)
		descent := sty.FontExtents().Descent
		c.FillText(sty, vg.Point{X: c.Center().X, Y: c.Max.Y + descent}, f.Title)
		c = draw.Crop(c, 0, 0, 0, -(sty.Rectangle(f.Title).Size().Y + vg.Points(6)))
	}

	plots := make([][]*plot.Plot, f.rows)
	for i, row := range f.panels {
		plots[i] = make([]*plot.Plot, f.cols)
		for j, p := range row {
			if p != nil {
				plots[i][j] = p.Plot
			}
		}
	}
	tiles := draw.Tiles{
		Rows:      f.rows,
		Cols:      f.cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align(plots, tiles, c)
	for i := range plots {
		for j, p := range plots[i] {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}
}

// WriteTo renders the figure in the given format (png, svg, pdf, eps, jpg,
// tif) and writes it to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	c, err := draw.NewFormattedCanvas(f.Width, f.Height, strings.ToLower(format))
	if err != nil {
		return 0, err
	}
	f.Draw(draw.New(c))
	return c.WriteTo(w)
}

// Save writes the figure to path; the format follows the extension.
func (f *Figure) Save(path string) error {
	return f.SaveTo(fsutil.OSFileSystem{}, path)
}

// SaveTo writes the figure to path on fs, creating parent directories. A
// partially written file is removed.
func (f *Figure) SaveTo(fs fsutil.FileSystem, path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return fmt.Errorf("cannot infer image format from %q", path)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteTo(w, format); err != nil {
		_ = w.Close()
		_ = fs.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
