package compose

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/config"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/render"
)

// TriptychTitles label the three heat maps of a triptych.
var TriptychTitles = [3]string{"reference", "target", "prediction"}

// Fields computes the empirical density field of every set over g. The
// sets are independent, so the fields are computed concurrently. errs[i]
// is non-nil when set i could not be binned; fields[i] is then nil.
func Fields(sets []dataset.SampleSet, g binning.Grid) (fields []*density.Field, errs []error) {
	fields = make([]*density.Field, len(sets))
	errs = make([]error, len(sets))

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range sets {
		eg.Go(func() error {
			if d := s.Dim(); d != 2 {
				errs[i] = fmt.Errorf("%w: heat map needs 2D samples, got %d columns", render.ErrShapeMismatch, d)
				return nil
			}
			fields[i], errs[i] = density.Histogram(s.Col(0), s.Col(1), g)
			return nil
		})
	}
	_ = eg.Wait()
	return fields, errs
}

// Triptych places heat maps of the reference, target and prediction sets
// side by side. The panels share bin edges and color range so they compare
// directly. A set that cannot be drawn becomes a placeholder panel.
func Triptych(reference, target, prediction dataset.SampleSet, cfg *config.RenderConfig) (*Figure, error) {
	start := time.Now()
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	g, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	opts := render.HeatmapOptions{
		VMin:    cfg.GetVMin(),
		VMax:    cfg.GetVMax(),
		Palette: cfg.GetPalette(),
		Axis:    cfg.GetAxis(),
	}

	fields, errs := Fields([]dataset.SampleSet{reference, target, prediction}, g)

	fig := NewFigure(1, 3, vg.Length(cfg.GetPanelSize())*vg.Inch)
	for j, f := range fields {
		p := render.NewPanel()
		p.SetTitle(TriptychTitles[j])
		fig.Set(0, j, p)
		if errs[j] != nil {
			fig.fail(0, j, errs[j])
			continue
		}
		if _, err := render.HeatmapField(p, f, opts); err != nil {
			fig.fail(0, j, err)
		}
	}
	tracef("triptych composed in %v", time.Since(start))
	return fig, nil
}
