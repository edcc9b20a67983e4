package compose

import (
	"fmt"
	"image/color"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/vg"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/config"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/render"
)

// DefaultPanelSize is the cell size used when MatrixOptions.PanelSize is 0.
const DefaultPanelSize = 3 * vg.Inch

var orange = color.RGBA{R: 0xff, G: 0xa5, A: 0xff}

// MatrixOptions configures PairwiseMatrix.
type MatrixOptions struct {
	// Lower is the kind drawn in every off-diagonal cell. It must be a 2D
	// kind.
	Lower render.PanelKind
	// Scatter overlays the raw points on every off-diagonal cell.
	Scatter bool

	// Limits fixes the axis range of each dimension. Nil autoscales.
	Limits []render.Range
	// Bins are the edges shared by diagonal histograms and heat maps.
	// Nil selects the default 2D edges.
	Bins binning.EdgeSequence
	// DiagBins, when positive, draws each diagonal histogram with that many
	// equal bins over the dimension's limits instead of Bins.
	DiagBins  int
	DiagColor color.Color

	// Truth marks the true parameter value of each dimension.
	Truth []float64
	// Symbols name the dimensions. Nil names them by column index.
	Symbols []string
	Title   string

	VMin, VMax float64
	Palette    string
	MeshPoints int
	Bandwidth  density.Bandwidth

	PanelSize vg.Length
}

func (o MatrixOptions) validate(d int) error {
	if d < 2 {
		return fmt.Errorf("%w: pairwise matrix needs at least 2 dimensions, got %d", render.ErrShapeMismatch, d)
	}
	if o.Lower.Dims() != 2 {
		return fmt.Errorf("%w: off-diagonal kind %v is not 2D", render.ErrShapeMismatch, o.Lower)
	}
	for name, n := range map[string]int{"limits": len(o.Limits), "truth": len(o.Truth), "symbols": len(o.Symbols)} {
		if n != 0 && n != d {
			return fmt.Errorf("%w: %d %s for %d dimensions", render.ErrShapeMismatch, n, name, d)
		}
	}
	if o.Bins != nil {
		if err := o.Bins.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o MatrixOptions) limit(i int) render.Range {
	if o.Limits == nil {
		return render.Range{}
	}
	return o.Limits[i]
}

func (o MatrixOptions) symbol(i int) string {
	if o.Symbols == nil {
		return strconv.Itoa(i)
	}
	return o.Symbols[i]
}

// diagEdges returns the bins of the diagonal histogram of column i.
func (o MatrixOptions) diagEdges(col []float64, i int) (binning.EdgeSequence, error) {
	if o.DiagBins <= 0 {
		return binning.Resolve(o.Bins, binning.Default2D())
	}
	r := o.limit(i)
	if r.IsZero() && len(col) > 0 {
		r = render.Range{Min: floats.Min(col), Max: floats.Max(col)}
	}
	if !(r.Max > r.Min) {
		r = render.Range{Min: r.Min - 0.5, Max: r.Min + 0.5}
	}
	return binning.Linspace(r.Min, r.Max, o.DiagBins+1)
}

// PairwiseMatrix lays a d-dimensional sample set out as a d × d lower
// triangle. Cell (i, i) holds the marginal histogram of dimension i and
// cell (i, j), j < i, the joint of dimensions j (x) and i (y) drawn as
// opts.Lower. Only the first column carries y labels and only the bottom
// row carries x labels. A cell that fails to render becomes a placeholder
// and is reported by Figure.Failures; its siblings are unaffected.
func PairwiseMatrix(samples dataset.SampleSet, opts MatrixOptions) (*Figure, error) {
	start := time.Now()
	n, d := samples.Dims()
	if err := opts.validate(d); err != nil {
		return nil, err
	}
	lower, err := render.ForKind(opts.Lower)
	if err != nil {
		return nil, err
	}
	diag, err := render.ForKind(render.Histogram1DKind)
	if err != nil {
		return nil, err
	}

	cols := make([][]float64, d)
	for j := range cols {
		cols[j] = samples.Col(j)
	}

	size := opts.PanelSize
	if size == 0 {
		size = DefaultPanelSize
	}
	fig := NewFigure(d, d, size)
	fig.Title = opts.Title
	errs := make([][]error, d)
	for i := range errs {
		errs[i] = make([]error, d)
		for j := 0; j <= i; j++ {
			fig.Set(i, j, render.NewPanel())
		}
	}
	diagf("pairwise matrix: %d samples, %d dimensions, lower=%v", n, d, opts.Lower)

	// Each goroutine owns exactly one panel.
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			p := fig.At(i, j)
			eg.Go(func() error {
				if i == j {
					errs[i][j] = drawDiagonal(p, diag, cols[i], i, opts)
				} else {
					errs[i][j] = drawJoint(p, lower, cols[j], cols[i], i, j, opts)
				}
				return nil
			})
		}
	}
	_ = eg.Wait()

	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			if errs[i][j] != nil {
				fig.fail(i, j, errs[i][j])
			}
			p := fig.At(i, j)
			var x, y string
			if j == 0 {
				y = opts.symbol(i)
			}
			if i == d-1 {
				x = opts.symbol(j)
			}
			p.SetLabels(x, y)
		}
	}
	tracef("pairwise matrix composed in %v", time.Since(start))
	return fig, nil
}

func drawDiagonal(p *render.Panel, r render.Renderer, col []float64, i int, opts MatrixOptions) error {
	edges, err := opts.diagEdges(col, i)
	if err != nil {
		return err
	}
	params := render.Params{XEdges: edges, XRange: opts.limit(i), Color: opts.DiagColor}
	if err := r.Render(p, render.PanelData{X: col}, params); err != nil {
		return err
	}
	if opts.Truth != nil {
		if _, err := render.Crosshair(p, opts.Truth[i]); err != nil {
			return err
		}
	}
	return nil
}

func drawJoint(p *render.Panel, r render.Renderer, x, y []float64, i, j int, opts MatrixOptions) error {
	params := render.Params{
		XEdges:     opts.Bins,
		YEdges:     opts.Bins,
		XRange:     opts.limit(j),
		YRange:     opts.limit(i),
		VMin:       opts.VMin,
		VMax:       opts.VMax,
		Palette:    opts.Palette,
		MeshPoints: opts.MeshPoints,
		Bandwidth:  opts.Bandwidth,
	}
	// The faint scatter sits beneath the density layer.
	if opts.Scatter && opts.Lower != render.Scatter2DKind {
		if _, err := render.Scatter2D(p, x, y, render.Params{XRange: params.XRange, YRange: params.YRange}); err != nil {
			return err
		}
	}
	if err := r.Render(p, render.PanelData{X: x, Y: y}, params); err != nil {
		return err
	}
	if opts.Truth != nil {
		if _, err := render.Crosshair(p, opts.Truth[j], opts.Truth[i]); err != nil {
			return err
		}
	}
	return nil
}

// LVOptions returns the matrix layout used for posterior samples: KDE
// contours over faint scatter, with 100-bin orange marginal histograms on
// the diagonal.
func LVOptions(cfg *config.RenderConfig) (MatrixOptions, error) {
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	bw, err := Bandwidth(cfg)
	if err != nil {
		return MatrixOptions{}, err
	}
	return MatrixOptions{
		Lower:      render.KDEContour2DKind,
		Scatter:    true,
		DiagBins:   cfg.GetMarginalBins(),
		DiagColor:  orange,
		Palette:    cfg.GetKDEPalette(),
		MeshPoints: cfg.GetKDEMeshPoints(),
		Bandwidth:  bw,
		PanelSize:  vg.Length(cfg.GetPanelSize()) * vg.Inch,
	}, nil
}

// LVMatrix draws posterior samples in the LVOptions layout. limits fix
// every axis; truth, when given, is marked on each cell.
func LVMatrix(samples dataset.SampleSet, limits []render.Range, truth []float64, symbols []string, cfg *config.RenderConfig) (*Figure, error) {
	opts, err := LVOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.Limits = limits
	opts.Truth = truth
	opts.Symbols = symbols
	return PairwiseMatrix(samples, opts)
}

// MarginalOptions returns the matrix layout that draws every pairwise
// marginal as a density heat map over the configured 2D edges, which the
// diagonal histograms share.
func MarginalOptions(cfg *config.RenderConfig) (MatrixOptions, error) {
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	bins, err := cfg.Edges2D()
	if err != nil {
		return MatrixOptions{}, err
	}
	return MatrixOptions{
		Lower:     render.Heatmap2DKind,
		Bins:      bins,
		VMin:      cfg.GetVMin(),
		VMax:      cfg.GetVMax(),
		Palette:   cfg.GetPalette(),
		PanelSize: vg.Length(cfg.GetPanelSize()) * vg.Inch,
	}, nil
}

// Marginals draws samples in the MarginalOptions layout.
func Marginals(samples dataset.SampleSet, title string, cfg *config.RenderConfig) (*Figure, error) {
	opts, err := MarginalOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.Title = title
	return PairwiseMatrix(samples, opts)
}

// Bandwidth returns the KDE bandwidth rule named by cfg.
func Bandwidth(cfg *config.RenderConfig) (density.Bandwidth, error) {
	rule, factor, err := config.ParseBandwidth(cfg.GetKDEBandwidth())
	if err != nil {
		return nil, err
	}
	switch rule {
	case "scott":
		return density.Scott, nil
	case "silverman":
		return density.Silverman, nil
	default:
		return density.Factor(factor), nil
	}
}
