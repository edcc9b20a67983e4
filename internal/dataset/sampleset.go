// Package dataset holds the sample containers passed into the renderers and
// adapters that produce them: CSV arrays, synthetic 2D benchmark sets and
// interpolated trajectories.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when raw data does not match the declared dimensions.
var ErrShape = errors.New("dataset: bad shape")

// SampleSet is an immutable (n, d) collection of observations. Row i is
// observation i; column j is coordinate j.
type SampleSet struct {
	m *mat.Dense
}

// NewSampleSet builds a set from row-major data of length n*d.
// The data slice is copied.
func NewSampleSet(n, d int, data []float64) (SampleSet, error) {
	if n < 0 || d < 1 {
		return SampleSet{}, fmt.Errorf("%w: n=%d d=%d", ErrShape, n, d)
	}
	if len(data) != n*d {
		return SampleSet{}, fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(data), n, d)
	}
	if n == 0 {
		return SampleSet{}, nil
	}
	return SampleSet{m: mat.NewDense(n, d, append([]float64(nil), data...))}, nil
}

// SampleSetFromRows builds a set from equal-length rows.
func SampleSetFromRows(rows [][]float64) (SampleSet, error) {
	if len(rows) == 0 {
		return SampleSet{}, nil
	}
	d := len(rows[0])
	data := make([]float64, 0, len(rows)*d)
	for i, r := range rows {
		if len(r) != d {
			return SampleSet{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(r), d)
		}
		data = append(data, r...)
	}
	return NewSampleSet(len(rows), d, data)
}

// SampleSetFromColumns builds a set from equal-length columns.
func SampleSetFromColumns(cols ...[]float64) (SampleSet, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return SampleSet{}, nil
	}
	n := len(cols[0])
	m := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		if len(c) != n {
			return SampleSet{}, fmt.Errorf("%w: column %d has %d values, want %d", ErrShape, j, len(c), n)
		}
		m.SetCol(j, c)
	}
	return SampleSet{m: m}, nil
}

// SampleSetFromValues builds a one-dimensional set.
func SampleSetFromValues(v []float64) SampleSet {
	s, _ := NewSampleSet(len(v), 1, v)
	return s
}

// Dims returns the number of observations and their dimension. An empty
// set reports (0, 0).
func (s SampleSet) Dims() (n, d int) {
	if s.m == nil {
		return 0, 0
	}
	return s.m.Dims()
}

// Len returns the number of observations.
func (s SampleSet) Len() int {
	n, _ := s.Dims()
	return n
}

// Dim returns the observation dimension.
func (s SampleSet) Dim() int {
	_, d := s.Dims()
	return d
}

// At returns coordinate j of observation i.
func (s SampleSet) At(i, j int) float64 { return s.m.At(i, j) }

// Col returns a copy of coordinate j across all observations.
func (s SampleSet) Col(j int) []float64 {
	n := s.Len()
	if n == 0 {
		return nil
	}
	return mat.Col(nil, j, s.m)
}

// Row returns a copy of observation i.
func (s SampleSet) Row(i int) []float64 {
	return mat.Row(nil, i, s.m)
}

// Flatten returns every value in row-major order.
func (s SampleSet) Flatten() []float64 {
	n, d := s.Dims()
	out := make([]float64, 0, n*d)
	for i := 0; i < n; i++ {
		out = append(out, s.m.RawRowView(i)...)
	}
	return out
}

// Cols returns an (n, len(idx)) set made of the selected coordinates,
// in the order given.
func (s SampleSet) Cols(idx ...int) (SampleSet, error) {
	n, d := s.Dims()
	for _, j := range idx {
		if j < 0 || j >= d {
			return SampleSet{}, fmt.Errorf("%w: column %d out of range for d=%d", ErrShape, j, d)
		}
	}
	data := make([]float64, 0, n*len(idx))
	for i := 0; i < n; i++ {
		for _, j := range idx {
			data = append(data, s.m.At(i, j))
		}
	}
	return NewSampleSet(n, len(idx), data)
}

// Matrix returns a read-only view of the underlying data.
func (s SampleSet) Matrix() mat.Matrix {
	if s.m == nil {
		return nil
	}
	return s.m
}

// Finite reports whether every value is finite.
func (s SampleSet) Finite() bool {
	for _, v := range s.Flatten() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
