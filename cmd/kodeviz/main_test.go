package main

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode-ml/kode/internal/compose"
	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/density"
	"github.com/kode-ml/kode/internal/fsutil"
	"github.com/kode-ml/kode/internal/monitoring"
	"github.com/kode-ml/kode/internal/render"
	"github.com/kode-ml/kode/internal/testutil"
)

// run executes kodeviz with args against an in-memory filesystem.
func run(t *testing.T, fsys *fsutil.MemoryFileSystem, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	original := monitoring.Logf
	t.Cleanup(func() {
		monitoring.Logf = original
		density.SetLogWriters(nil, nil, nil)
		compose.SetLogWriters(nil, nil, nil)
	})
	a := &app{fs: fsys, stdout: &out, stderr: &errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeCSV(t *testing.T, fsys *fsutil.MemoryFileSystem, name string, header []string, s dataset.SampleSet) {
	t.Helper()
	var b strings.Builder
	if header != nil {
		b.WriteString(strings.Join(header, ",") + "\n")
	}
	n, d := s.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%g", s.At(i, j))
		}
		b.WriteByte('\n')
	}
	require.NoError(t, fsys.WriteFile(name, []byte(b.String()), 0644))
}

func TestTriptychCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "ref.csv", nil, testutil.NormalSamples(1, 300, 2))
	writeCSV(t, fsys, "target.csv", []string{"x", "y"}, testutil.NormalSamples(2, 300, 2))
	writeCSV(t, fsys, "pred.csv", nil, testutil.NormalSamples(3, 300, 2))

	args := []string{"triptych", "--reference", "ref.csv", "--target", "target.csv", "--prediction", "pred.csv", "--output-dir", "/out"}
	_, stderr, err := run(t, fsys, append(args, "--format", "svg")...)
	require.NoError(t, err)
	assert.True(t, fsys.Exists("/out/triptych.svg"))
	assert.Contains(t, stderr, "wrote /out/triptych.svg")
	assert.Contains(t, stderr, "triptych: done in")

	_, _, err = run(t, fsys, append(args, "--format", "html")...)
	require.NoError(t, err)
	html, err := fsys.ReadFile("/out/triptych.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")
	assert.Contains(t, string(html), "prediction")
}

func TestTriptychCommandPlaceholder(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "ref.csv", nil, testutil.NormalSamples(1, 200, 2))
	writeCSV(t, fsys, "wide.csv", nil, testutil.NormalSamples(2, 200, 3))

	_, stderr, err := run(t, fsys, "triptych", "--reference", "ref.csv", "--target", "wide.csv", "--prediction", "ref.csv", "--output-dir", "/out")
	require.NoError(t, err)
	assert.True(t, fsys.Exists("/out/triptych.png"))
	assert.Contains(t, stderr, "placeholder")
}

func TestDefaultOutputDir(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "ref.csv", nil, testutil.NormalSamples(1, 100, 2))

	_, _, err := run(t, fsys, "triptych", "--reference", "ref.csv", "--target", "ref.csv", "--prediction", "ref.csv", "--format", "pdf")
	require.NoError(t, err)

	var figures []string
	for _, f := range fsys.Files() {
		if strings.HasSuffix(f, "triptych.pdf") {
			figures = append(figures, f)
		}
	}
	require.Len(t, figures, 1)
	assert.Regexp(t, `^plots/[0-9a-f-]{36}/triptych\.pdf$`, figures[0])
}

func TestMarginalsCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "post.csv", []string{"alpha", "beta", "gamma"}, testutil.NormalSamples(4, 300, 3))
	require.NoError(t, fsys.WriteFile("render.yaml", []byte("kde_mesh_points: 25\nmarginal_bins: 20\n"), 0644))

	for _, kind := range []string{"heatmap", "kde", "scatter"} {
		t.Run(kind, func(t *testing.T) {
			dir := "/out/" + kind
			_, _, err := run(t, fsys, "marginals", "--input", "post.csv", "--kind", kind,
				"--truth", "0,0.5,-0.5", "--limits", "-4,4,-4,4,-4,4",
				"--config", "render.yaml", "--output-dir", dir, "--format", "svg")
			require.NoError(t, err)
			svg, err := fsys.ReadFile(dir + "/marginals.svg")
			require.NoError(t, err)
			assert.Contains(t, string(svg), "gamma")
		})
	}

	_, _, err := run(t, fsys, "marginals", "--input", "post.csv", "--output-dir", "/html", "--format", "html")
	require.NoError(t, err)
	html, err := fsys.ReadFile("/html/marginals.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "gamma vs beta")
}

func TestMarginalsCommandErrors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "post.csv", nil, testutil.NormalSamples(4, 100, 3))

	_, _, err := run(t, fsys, "marginals", "--input", "post.csv", "--limits", "-4,4,-4", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrShapeMismatch)

	_, _, err = run(t, fsys, "marginals", "--input", "post.csv", "--truth", "0,1", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrShapeMismatch)

	_, _, err = run(t, fsys, "marginals", "--input", "post.csv", "--kind", "histogram", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrShapeMismatch)

	_, _, err = run(t, fsys, "marginals", "--input", "missing.csv", "--output-dir", "/out")
	assert.Error(t, err)

	_, _, err = run(t, fsys, "marginals", "--output-dir", "/out")
	assert.ErrorContains(t, err, "input")
}

func TestTrajectoriesCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, stderr, err := run(t, fsys, "trajectories", "--dataset", "8gaussians", "--steps", "10", "--batch", "100", "--points", "5", "--output-dir", "/out")
	require.NoError(t, err)
	assert.True(t, fsys.Exists("/out/trajectories.png"))
	assert.Contains(t, stderr, "drew members")

	_, _, err = run(t, fsys, "trajectories", "--dataset", "moons", "--output-dir", "/out")
	assert.ErrorContains(t, err, "unknown 2D dataset")

	_, _, err = run(t, fsys, "trajectories", "--output-dir", "/out", "--format", "html")
	assert.ErrorContains(t, err, "html")
}

func TestOverlayCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "ref.csv", nil, dataset.SampleSetFromValues(testutil.NormalValues(1, 500)))
	writeCSV(t, fsys, "pred.csv", nil, dataset.SampleSetFromValues(testutil.NormalValues(2, 500)))
	writeCSV(t, fsys, "wide.csv", nil, testutil.NormalSamples(3, 10, 2))

	_, _, err := run(t, fsys, "overlay", "--reference", "ref.csv", "--prediction", "pred.csv", "--output-dir", "/out")
	require.NoError(t, err)
	assert.True(t, fsys.Exists("/out/overlay.png"))

	_, _, err = run(t, fsys, "overlay", "--reference", "wide.csv", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrShapeMismatch)
}

func TestConditionalCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCSV(t, fsys, "true.csv", nil, dataset.SampleSetFromValues(testutil.NormalValues(1, 400)))
	writeCSV(t, fsys, "pred.csv", nil, dataset.SampleSetFromValues(testutil.NormalValues(2, 400)))
	writeCSV(t, fsys, "const.csv", nil, dataset.SampleSetFromValues([]float64{1, 1, 1, 1}))
	writeCSV(t, fsys, "wide.csv", nil, testutil.NormalSamples(3, 10, 2))
	require.NoError(t, fsys.WriteFile("render.yaml", []byte("conditional_bandwidth: 0.25\n"), 0644))

	_, _, err := run(t, fsys, "conditional", "--true", "true.csv", "--predicted", "pred.csv",
		"--config", "render.yaml", "--output-dir", "/out", "--format", "svg")
	require.NoError(t, err)
	svg, err := fsys.ReadFile("/out/conditional.svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), "Predicted")

	_, _, err = run(t, fsys, "conditional", "--true", "const.csv", "--predicted", "pred.csv", "--output-dir", "/out")
	assert.ErrorIs(t, err, density.ErrDegenerate)

	_, _, err = run(t, fsys, "conditional", "--true", "wide.csv", "--predicted", "pred.csv", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrShapeMismatch)

	require.NoError(t, fsys.WriteFile("bad.yaml", []byte("conditional_bandwidth: -1\n"), 0644))
	_, _, err = run(t, fsys, "conditional", "--true", "true.csv", "--predicted", "pred.csv", "--config", "bad.yaml", "--output-dir", "/out")
	assert.ErrorContains(t, err, "conditional_bandwidth")
}

const lossTable = `epoch,train,rkhs,h1,test_epoch,test
0,1.0,2.0,3.0,0,1.2
1,0.5,1.5,2.5,NaN,NaN
2,0.25,1.0,2.0,2,0.4
3,0.1,0.8,1.5,NaN,NaN
`

func TestLossCommand(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("loss.csv", []byte(lossTable), 0644))

	_, _, err := run(t, fsys, "loss", "--input", "loss.csv", "--output-dir", "/out", "--format", "svg")
	require.NoError(t, err)
	svg, err := fsys.ReadFile("/out/loss.svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), "Test MMD loss")

	_, _, err = run(t, fsys, "loss", "--input", "loss.csv", "--output-dir", "/out", "--format", "html")
	require.NoError(t, err)
	assert.True(t, fsys.Exists("/out/loss.html"))

	require.NoError(t, fsys.WriteFile("neg.csv", []byte("epoch,train\n0,1\n1,-1\n"), 0644))
	_, _, err = run(t, fsys, "loss", "--input", "neg.csv", "--output-dir", "/out")
	assert.ErrorIs(t, err, render.ErrLogDomain)
}

func TestLossCurves(t *testing.T) {
	nan := math.NaN()
	s, err := dataset.SampleSetFromRows([][]float64{
		{0, 1, 1.2},
		{1, 0.5, nan},
		{2, 0.25, 0.4},
	})
	require.NoError(t, err)

	c, err := lossCurves(s, []string{"Epoch", "train", "test"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, c.TrainEpochs)
	assert.Equal(t, []float64{1, 0.5, 0.25}, c.Train)
	assert.Equal(t, []float64{0, 2}, c.TestEpochs)
	assert.Equal(t, []float64{1.2, 0.4}, c.Test)
	assert.Nil(t, c.RKHS)

	_, err = lossCurves(s, nil)
	assert.ErrorContains(t, err, "header")
	_, err = lossCurves(s, []string{"step", "train", "test"})
	assert.ErrorContains(t, err, "epoch")
	_, err = lossCurves(s, []string{"epoch", "a", "b"})
	assert.ErrorContains(t, err, "none of")

	_, err = lossCurves(s, []string{"epoch", "train", "rkhs"})
	assert.ErrorIs(t, err, render.ErrShapeMismatch)
}

func TestRootFlags(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, _, err := run(t, fsys, "loss", "--input", "loss.csv", "--format", "bmp")
	assert.ErrorContains(t, err, "unknown format")

	_, _, err = run(t, fsys, "loss", "--input", "loss.csv", "--config", "missing.yaml")
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, fsys.WriteFile("bad.yaml", []byte("vmin: 1\nvmax: 0.5\n"), 0644))
	_, _, err = run(t, fsys, "loss", "--input", "loss.csv", "--config", "bad.yaml")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, fsutil.NewMemoryFileSystem(), "version", "--format", "bmp")
	require.NoError(t, err)
	assert.Contains(t, stdout, "kodeviz dev")
}
