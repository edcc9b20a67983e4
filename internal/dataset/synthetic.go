package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// TabularDims lists the feature count of the bundled high-dimensional
// tabular benchmarks.
var TabularDims = map[string]int{
	"power":     6,
	"gas":       8,
	"hepmass":   21,
	"miniboone": 43,
	"bsds300":   63,
}

// CheckTabular verifies that s has the documented width for the named
// tabular benchmark.
func CheckTabular(name string, s SampleSet) error {
	want, ok := TabularDims[name]
	if !ok {
		return fmt.Errorf("unknown tabular dataset %q", name)
	}
	if got := s.Dim(); got != want {
		return fmt.Errorf("%w: %s has %d columns, want %d", ErrShape, name, got, want)
	}
	return nil
}

// TwoDimensionalNames returns the names accepted by TwoDimensional.
func TwoDimensionalNames() []string {
	names := make([]string, 0, len(generators))
	for n := range generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type generator func(src rand.Source, n int) [][]float64

var generators = map[string]generator{
	"pinwheel":     pinwheel,
	"8gaussians":   eightGaussians,
	"checkerboard": checkerboard,
	"swissroll":    swissRoll,
}

// TwoDimensional draws batch points from a named synthetic 2D distribution.
// A nil src uses a fixed seed so repeated calls agree.
func TwoDimensional(name string, src rand.Source, batch int) (SampleSet, error) {
	gen, ok := generators[name]
	if !ok {
		return SampleSet{}, fmt.Errorf("unknown 2D dataset %q (have %v)", name, TwoDimensionalNames())
	}
	if batch < 1 {
		return SampleSet{}, fmt.Errorf("%w: batch size %d", ErrShape, batch)
	}
	if src == nil {
		src = rand.NewPCG(0, 0)
	}
	return SampleSetFromRows(gen(src, batch))
}

// StandardNormal draws an (n, d) standard normal reference set.
func StandardNormal(src rand.Source, n, d int) SampleSet {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	data := make([]float64, n*d)
	for i := range data {
		data[i] = norm.Rand()
	}
	s, _ := NewSampleSet(n, d, data)
	return s
}

func pinwheel(src rand.Source, n int) [][]float64 {
	const (
		radialStd     = 0.3
		tangentialStd = 0.1
		classes       = 5
		rate          = 0.25
	)
	rng := rand.New(src)
	rows := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		base := 2 * math.Pi * float64(i%classes) / classes
		f0 := rng.NormFloat64()*radialStd + 1
		f1 := rng.NormFloat64() * tangentialStd
		a := base + rate*math.Exp(f0)
		sin, cos := math.Sincos(a)
		rows = append(rows, []float64{2 * (f0*cos + f1*sin), 2 * (-f0*sin + f1*cos)})
	}
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}

func eightGaussians(src rand.Source, n int) [][]float64 {
	const scale = 4.0
	s := 1 / math.Sqrt2
	centers := [][2]float64{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{s, s}, {s, -s}, {-s, s}, {-s, -s},
	}
	rng := rand.New(src)
	rows := make([][]float64, n)
	for i := range rows {
		c := centers[rng.IntN(len(centers))]
		rows[i] = []float64{
			(rng.NormFloat64()*0.5 + c[0]*scale) / 1.414,
			(rng.NormFloat64()*0.5 + c[1]*scale) / 1.414,
		}
	}
	return rows
}

func checkerboard(src rand.Source, n int) [][]float64 {
	rng := rand.New(src)
	rows := make([][]float64, n)
	for i := range rows {
		x1 := rng.Float64()*4 - 2
		x2 := rng.Float64() - float64(rng.IntN(2))*2
		x2 += float64(((int(math.Floor(x1)) % 2) + 2) % 2)
		rows[i] = []float64{x1 * 2, x2 * 2}
	}
	return rows
}

func swissRoll(src rand.Source, n int) [][]float64 {
	rng := rand.New(src)
	rows := make([][]float64, n)
	for i := range rows {
		t := 1.5 * math.Pi * (1 + 2*rng.Float64())
		x := t*math.Cos(t) + rng.NormFloat64()
		z := t*math.Sin(t) + rng.NormFloat64()
		rows[i] = []float64{x / 5, z / 5}
	}
	return rows
}
