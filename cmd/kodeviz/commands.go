package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/compose"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/monitoring"
	"github.com/kode-ml/kode/internal/render"
	"github.com/kode-ml/kode/internal/report"
	"github.com/kode-ml/kode/internal/sampler"
	"github.com/kode-ml/kode/internal/version"
)

func newTriptychCmd(a *app) *cobra.Command {
	var ref, target, pred string
	cmd := &cobra.Command{
		Use:   "triptych",
		Short: "Heat maps of reference, target and prediction samples side by side",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("triptych")()
			var sets [3]dataset.SampleSet
			for i, path := range []string{ref, target, pred} {
				s, _, err := a.load(path)
				if err != nil {
					return err
				}
				sets[i] = s
			}

			if a.format == "html" {
				g, err := a.cfg.Grid()
				if err != nil {
					return err
				}
				fields, errs := compose.Fields(sets[:], g)
				for i, err := range errs {
					if err != nil {
						monitoring.Logf("%s: %v", compose.TriptychTitles[i], err)
					}
				}
				page := report.NewPage("triptych")
				if err := page.AddFields(compose.TriptychTitles[:], fields, a.reportOptions()); err != nil {
					return err
				}
				return a.savePage("triptych", page)
			}

			fig, err := compose.Triptych(sets[0], sets[1], sets[2], a.cfg)
			if err != nil {
				return err
			}
			return a.saveFigure("triptych", fig)
		},
	}
	cmd.Flags().StringVar(&ref, "reference", "", "reference samples CSV (n, 2)")
	cmd.Flags().StringVar(&target, "target", "", "target samples CSV (n, 2)")
	cmd.Flags().StringVar(&pred, "prediction", "", "predicted samples CSV (n, 2)")
	for _, f := range []string{"reference", "target", "prediction"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newOverlayCmd(a *app) *cobra.Command {
	var ref, target, pred string
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Overlay 1D reference, target and prediction histograms",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("overlay")()
			var cols [3][]float64
			for i, path := range []string{ref, target, pred} {
				if path == "" {
					continue
				}
				s, _, err := a.load(path)
				if err != nil {
					return err
				}
				if s.Dim() != 1 {
					return fmt.Errorf("%s: %w: overlay needs 1 column, got %d", path, render.ErrShapeMismatch, s.Dim())
				}
				cols[i] = s.Col(0)
			}
			edges, err := a.cfg.Edges1D()
			if err != nil {
				return err
			}
			p, err := render.Distribution(render.NewPanel(), cols[0], cols[1], cols[2], render.OverlayOptions{
				Edges: edges,
				YMax:  a.cfg.GetOverlayYMax(),
			})
			if err != nil {
				return err
			}
			return a.saveFigure("overlay", a.single(p))
		},
	}
	cmd.Flags().StringVar(&ref, "reference", "", "reference samples CSV (n, 1)")
	cmd.Flags().StringVar(&target, "target", "", "target samples CSV (n, 1)")
	cmd.Flags().StringVar(&pred, "prediction", "", "predicted samples CSV (n, 1)")
	return cmd
}

func newMarginalsCmd(a *app) *cobra.Command {
	var (
		input, kind, title string
		truth, limits      []float64
		symbols            []string
	)
	cmd := &cobra.Command{
		Use:   "marginals",
		Short: "Pairwise marginal matrix of a d-dimensional sample set",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("marginals")()
			s, header, err := a.load(input)
			if err != nil {
				return err
			}
			if symbols == nil {
				symbols = header
			}
			ranges, err := pairs(limits)
			if err != nil {
				return err
			}
			if title == "" {
				title = input
			}

			if a.format == "html" {
				return a.marginalsPage(s, symbols, title)
			}

			k, err := render.ParsePanelKind(kind)
			if err != nil {
				return err
			}
			var opts compose.MatrixOptions
			switch k {
			case render.KDEContour2DKind:
				opts, err = compose.LVOptions(a.cfg)
			case render.Heatmap2DKind:
				opts, err = compose.MarginalOptions(a.cfg)
			default:
				opts = compose.MatrixOptions{Lower: k, PanelSize: vg.Length(a.cfg.GetPanelSize()) * vg.Inch}
			}
			if err != nil {
				return err
			}
			opts.Limits = ranges
			opts.Truth = truth
			opts.Symbols = symbols
			opts.Title = title
			fig, err := compose.PairwiseMatrix(s, opts)
			if err != nil {
				return err
			}
			return a.saveFigure("marginals", fig)
		},
	}
	f := cmd.Flags()
	f.StringVar(&input, "input", "", "samples CSV (n, d)")
	f.StringVar(&kind, "kind", "heatmap", "off-diagonal panel kind: heatmap, kde or scatter")
	f.StringVar(&title, "title", "", "figure title (default the input path)")
	f.Float64SliceVar(&truth, "truth", nil, "true parameter value per dimension")
	f.Float64SliceVar(&limits, "limits", nil, "axis limits as lo,hi pairs, one per dimension")
	f.StringSliceVar(&symbols, "symbols", nil, "dimension names (default the CSV header)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// marginalsPage writes the joint density of every dimension pair as an
// interactive heat map.
func (a *app) marginalsPage(s dataset.SampleSet, symbols []string, title string) error {
	g, err := a.cfg.Grid()
	if err != nil {
		return err
	}
	d := s.Dim()
	name := func(i int) string {
		if i < len(symbols) {
			return symbols[i]
		}
		return fmt.Sprint(i)
	}
	var (
		sets   []dataset.SampleSet
		titles []string
	)
	for i := 1; i < d; i++ {
		for j := 0; j < i; j++ {
			pair, err := s.Cols(j, i)
			if err != nil {
				return err
			}
			sets = append(sets, pair)
			titles = append(titles, name(i)+" vs "+name(j))
		}
	}
	fields, errs := compose.Fields(sets, g)
	for i, err := range errs {
		if err != nil {
			monitoring.Logf("%s: %v", titles[i], err)
		}
	}
	page := report.NewPage(title)
	if err := page.AddFields(titles, fields, a.reportOptions()); err != nil {
		return err
	}
	return a.savePage("marginals", page)
}

func newTrajectoriesCmd(a *app) *cobra.Command {
	var (
		name         string
		steps, batch int
		points       int
		seed         uint64
	)
	cmd := &cobra.Command{
		Use:   "trajectories",
		Short: "Particle paths from a standard normal to a synthetic 2D dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("trajectories")()
			if !cmd.Flags().Changed("points") {
				points = a.cfg.GetTrajectoryPoints()
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.GetTrajectorySeed()
			}
			target, err := dataset.TwoDimensional(name, sampler.Source(seed), batch)
			if err != nil {
				return err
			}
			ref := dataset.StandardNormal(sampler.Source(seed+1), batch, 2)
			traj, err := dataset.Interpolate(ref, target, steps)
			if err != nil {
				return err
			}
			p, err := render.Trajectories2D(render.NewPanel(), traj, points, seed)
			if err != nil {
				return err
			}
			p.SetTitle(name)
			monitoring.Logf("trajectories: drew members %v", p.Selection())
			return a.saveFigure("trajectories", a.single(p))
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "dataset", "pinwheel", fmt.Sprintf("synthetic dataset %v", dataset.TwoDimensionalNames()))
	f.IntVar(&steps, "steps", 50, "number of trajectory steps")
	f.IntVar(&batch, "batch", 500, "number of particles")
	f.IntVar(&points, "points", 20, "number of paths to draw (default from config)")
	f.Uint64Var(&seed, "seed", 20, "selection and sampling seed (default from config)")
	return cmd
}

func newConditionalCmd(a *app) *cobra.Command {
	var truePath, predPath string
	cmd := &cobra.Command{
		Use:   "conditional",
		Short: "Kernel density estimates of true and predicted values of one output",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("conditional")()
			var cols [2][]float64
			for i, path := range []string{truePath, predPath} {
				s, _, err := a.load(path)
				if err != nil {
					return err
				}
				if s.Dim() != 1 {
					return fmt.Errorf("%s: %w: conditional density needs 1 column, got %d", path, render.ErrShapeMismatch, s.Dim())
				}
				cols[i] = s.Col(0)
			}
			fig, err := compose.Conditional(cols[0], cols[1], a.cfg)
			if err != nil {
				return err
			}
			return a.saveFigure("conditional", fig)
		},
	}
	cmd.Flags().StringVar(&truePath, "true", "", "true values CSV (n, 1)")
	cmd.Flags().StringVar(&predPath, "predicted", "", "predicted values CSV (n, 1)")
	_ = cmd.MarkFlagRequired("true")
	_ = cmd.MarkFlagRequired("predicted")
	return cmd
}

func newLossCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "loss",
		Short: "Training and test loss curves on a log scale",
		Long: `Reads a CSV with a header naming its columns. "epoch" is required;
"train", "rkhs", "h1" and "test" are optional series. "test_epoch" gives
the test series its own cadence. NaN cells are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer monitoring.Track("loss")()
			s, header, err := dataset.LoadCSVFile(a.fs, input)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			curves, err := lossCurves(s, header)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			if a.format == "html" {
				page := report.NewPage("loss")
				if err := page.AddLoss(curves); err != nil {
					return err
				}
				return a.savePage("loss", page)
			}
			p, err := render.Loss(render.NewPanel(), curves)
			if err != nil {
				return err
			}
			return a.saveFigure("loss", a.single(p))
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "loss CSV with header")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or output directory needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "kodeviz %s\n", version.String())
		},
	}
}

// single wraps one panel in a figure of the configured size.
func (a *app) single(p *render.Panel) *compose.Figure {
	fig := compose.NewFigure(1, 1, vg.Length(a.cfg.GetPanelSize())*vg.Inch)
	fig.Set(0, 0, p)
	return fig
}

func (a *app) reportOptions() report.Options {
	return report.Options{
		VMin:    a.cfg.GetVMin(),
		VMax:    a.cfg.GetVMax(),
		Palette: a.cfg.GetPalette(),
	}
}

// pairs turns a flat lo,hi list into ranges.
func pairs(v []float64) ([]render.Range, error) {
	if len(v)%2 != 0 {
		return nil, fmt.Errorf("%w: limits need lo,hi pairs, got %d values", binning.ErrShapeMismatch, len(v))
	}
	var out []render.Range
	for i := 0; i < len(v); i += 2 {
		if !(v[i+1] > v[i]) {
			return nil, fmt.Errorf("limit %d: %g is not above %g", i/2, v[i+1], v[i])
		}
		out = append(out, render.Range{Min: v[i], Max: v[i+1]})
	}
	return out, nil
}
