package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kode-ml/kode/internal/compose"
	"github.com/kode-ml/kode/internal/config"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/fsutil"
	"github.com/kode-ml/kode/internal/monitoring"
	"github.com/kode-ml/kode/internal/report"
)

var imageFormats = []string{"png", "svg", "pdf", "eps", "jpg", "tif"}

// app carries the state shared by every subcommand.
type app struct {
	fs     fsutil.FileSystem
	stdout io.Writer
	stderr io.Writer

	configPath string
	outputDir  string
	format     string
	verbose    bool

	cfg *config.RenderConfig
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kodeviz",
		Short:         "Render diagnostic figures for kernel operator transport runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "render config file (.json, .yaml or .yml)")
	pf.StringVar(&a.outputDir, "output-dir", "", "output directory (default plots/<run id>)")
	pf.StringVar(&a.format, "format", "png", "output format: "+strings.Join(imageFormats, ", ")+" or html")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log diagnostics and timings")

	root.AddCommand(
		newTriptychCmd(a),
		newOverlayCmd(a),
		newMarginalsCmd(a),
		newTrajectoriesCmd(a),
		newConditionalCmd(a),
		newLossCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the config, resolves the output directory and wires the
// package loggers to stderr.
func (a *app) setup() error {
	a.format = strings.ToLower(strings.TrimPrefix(a.format, "."))
	if a.format != "html" && !slices.Contains(imageFormats, a.format) {
		return fmt.Errorf("unknown format %q", a.format)
	}

	a.cfg = config.EmptyRenderConfig()
	if a.configPath != "" {
		if !a.fs.Exists(a.configPath) {
			return fmt.Errorf("config file %s not found", a.configPath)
		}
		cfg, err := config.LoadRenderConfigFS(a.fs, a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.outputDir == "" {
		a.outputDir = filepath.Join("plots", uuid.NewString())
	}

	logger := log.New(a.stderr, "", log.LstdFlags)
	monitoring.SetLogger(logger.Printf)
	if a.verbose {
		density.SetLogWriters(a.stderr, a.stderr, a.stderr)
		compose.SetLogWriters(a.stderr, a.stderr, a.stderr)
	} else {
		density.SetLogWriters(a.stderr, nil, nil)
		compose.SetLogWriters(a.stderr, nil, nil)
	}
	return nil
}

// path returns the output path of the named figure.
func (a *app) path(name string) string {
	return filepath.Join(a.outputDir, name+"."+a.format)
}

func (a *app) saveFigure(name string, fig *compose.Figure) error {
	if a.format == "html" {
		return fmt.Errorf("%s cannot be exported as html; choose one of %s", name, strings.Join(imageFormats, ", "))
	}
	path := a.path(name)
	if err := fig.SaveTo(a.fs, path); err != nil {
		return err
	}
	for _, f := range fig.Failures() {
		monitoring.Logf("%s: %v", name, f)
	}
	monitoring.Logf("wrote %s", path)
	return nil
}

func (a *app) savePage(name string, page *report.Page) error {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return err
	}
	if err := a.fs.MkdirAll(a.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	path := a.path(name)
	if err := a.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	monitoring.Logf("wrote %s", path)
	return nil
}

func (a *app) load(path string) (dataset.SampleSet, []string, error) {
	s, header, err := dataset.LoadCSVFile(a.fs, path)
	if err != nil {
		return dataset.SampleSet{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	if !s.Finite() {
		return dataset.SampleSet{}, nil, fmt.Errorf("%s: samples contain NaN or Inf", path)
	}
	return s, header, nil
}
