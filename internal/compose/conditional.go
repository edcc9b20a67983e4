package compose

import (
	"gonum.org/v1/plot/vg"

	"github.com/kode-ml/kode/internal/config"
	"github.com/kode-ml/kode/internal/render"
)

// ConditionalOptions returns the conditional density settings of cfg.
func ConditionalOptions(cfg *config.RenderConfig) render.ConditionalOptions {
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	return render.ConditionalOptions{Factor: cfg.GetConditionalBandwidth()}
}

// Conditional draws the true and predicted conditional densities of one
// output in a single-panel figure.
func Conditional(yTrue, yPred []float64, cfg *config.RenderConfig) (*Figure, error) {
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	p, err := render.ConditionalDensity(render.NewPanel(), yTrue, yPred, ConditionalOptions(cfg))
	if err != nil {
		return nil, err
	}
	fig := NewFigure(1, 1, vg.Length(cfg.GetPanelSize())*vg.Inch)
	fig.Set(0, 0, p)
	return fig, nil
}
