// Package testutil provides shared test utilities and fixtures.
//
// Fixtures are seeded so every test sees the same samples on every run.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kode-ml/kode/internal/dataset"
)

func source(seed uint64) rand.Source {
	return rand.NewPCG(seed, ^seed)
}

// NormalValues returns n standard normal draws.
func NormalValues(seed uint64, n int) []float64 {
	d := distuv.Normal{Mu: 0, Sigma: 1, Src: source(seed)}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// UniformValues returns n draws from U[lo, hi).
func UniformValues(seed uint64, n int, lo, hi float64) []float64 {
	d := distuv.Uniform{Min: lo, Max: hi, Src: source(seed)}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

// NormalSamples returns an (n, d) standard normal sample set.
func NormalSamples(seed uint64, n, d int) dataset.SampleSet {
	return dataset.StandardNormal(source(seed), n, d)
}

// Trajectory returns a (steps, members, coords) trajectory that carries a
// standard normal cloud towards a shifted, rescaled copy of itself.
func Trajectory(t *testing.T, seed uint64, steps, members, coords int) dataset.Trajectory {
	t.Helper()
	ref := NormalSamples(seed, members, coords)
	data := make([]float64, 0, members*coords)
	for _, v := range NormalSamples(seed+1, members, coords).Flatten() {
		data = append(data, 0.5*v+2)
	}
	target, err := dataset.NewSampleSet(members, coords, data)
	AssertNoError(t, err)
	tr, err := dataset.Interpolate(ref, target, steps)
	AssertNoError(t, err)
	return tr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFinite fails the test if any value is NaN or infinite.
func AssertFinite(t *testing.T, values []float64) {
	t.Helper()
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("value %d is %g", i, v)
		}
	}
}

// AssertStrictlyIncreasing fails the test unless values[i] < values[i+1]
// for every i.
func AssertStrictlyIncreasing(t *testing.T, values []float64) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		if !(values[i] > values[i-1]) {
			t.Fatalf("values[%d] = %g does not exceed values[%d] = %g", i, values[i], i-1, values[i-1])
		}
	}
}
