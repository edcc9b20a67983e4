// Package binning decides the bin edges used by histogram and density panels.
//
// Edges are either supplied by the caller or derived from fixed symmetric
// defaults. 2D panels default to 50 points over [-4, 4]; 1D overlays default
// to 100 bins over [-10, 10]. The same Grid is shared by 2D histograms and
// kernel density evaluation so both line up when drawn side by side.
package binning

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidBinning is returned for edge sequences with fewer than two
// points, non-finite values or values that are not strictly increasing.
var ErrInvalidBinning = errors.New("invalid binning input")

// ErrShapeMismatch is returned when sample dimensions do not match what a
// panel or histogram requires.
var ErrShapeMismatch = errors.New("shape mismatch")

const (
	// Default2DPoints is the number of edge points on each axis of a 2D panel.
	Default2DPoints = 50
	// Default2DLimit bounds the symmetric [-limit, limit] 2D range.
	Default2DLimit = 4.0
	// Default1DBins is the bin count of 1D overlay histograms.
	Default1DBins = 100
	// Default1DLimit bounds the symmetric [-limit, limit] 1D range.
	Default1DLimit = 10.0
)

// EdgeSequence is a strictly increasing sequence of bin boundaries.
// A sequence of k+1 points describes k bins.
type EdgeSequence []float64

// Linspace returns n evenly spaced edges spanning [lo, hi].
func Linspace(lo, hi float64, n int) (EdgeSequence, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidBinning, n)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("%w: non-finite range [%g, %g]", ErrInvalidBinning, lo, hi)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("%w: empty range [%g, %g]", ErrInvalidBinning, lo, hi)
	}
	e := floats.Span(make([]float64, n), lo, hi)
	// Span accumulates rounding error toward the top end.
	e[n-1] = hi
	return EdgeSequence(e), nil
}

// Symmetric returns n evenly spaced edges spanning [-limit, limit].
func Symmetric(limit float64, n int) (EdgeSequence, error) {
	return Linspace(-limit, limit, n)
}

// Default2D returns the default edges for one axis of a 2D panel.
func Default2D() EdgeSequence {
	e, _ := Symmetric(Default2DLimit, Default2DPoints)
	return e
}

// Default1D returns the default edges of a 1D overlay histogram.
func Default1D() EdgeSequence {
	e, _ := Symmetric(Default1DLimit, Default1DBins+1)
	return e
}

// Validate reports whether e satisfies the edge invariants.
func (e EdgeSequence) Validate() error {
	if len(e) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidBinning, len(e))
	}
	for i, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite edge %g at index %d", ErrInvalidBinning, v, i)
		}
		if i > 0 && !(v > e[i-1]) {
			return fmt.Errorf("%w: edges not strictly increasing at index %d (%g <= %g)", ErrInvalidBinning, i, v, e[i-1])
		}
	}
	return nil
}

// Bins returns the number of bins described by e.
func (e EdgeSequence) Bins() int {
	if len(e) < 2 {
		return 0
	}
	return len(e) - 1
}

// Min returns the lowest edge.
func (e EdgeSequence) Min() float64 { return e[0] }

// Max returns the highest edge.
func (e EdgeSequence) Max() float64 { return e[len(e)-1] }

// Width returns the width of bin i.
func (e EdgeSequence) Width(i int) float64 { return e[i+1] - e[i] }

// Centers returns the midpoint of every bin.
func (e EdgeSequence) Centers() []float64 {
	c := make([]float64, e.Bins())
	for i := range c {
		c[i] = 0.5 * (e[i] + e[i+1])
	}
	return c
}

// Index returns the bin containing v, or -1 when v lies outside [Min, Max].
// Bins are half open except the last one, which also includes Max.
func (e EdgeSequence) Index(v float64) int {
	if len(e) < 2 || v < e[0] || v > e[len(e)-1] || math.IsNaN(v) {
		return -1
	}
	if v == e[len(e)-1] {
		return len(e) - 2
	}
	lo, hi := 0, len(e)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if v < e[mid] {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

// Clone returns a copy of e.
func (e EdgeSequence) Clone() EdgeSequence {
	return append(EdgeSequence(nil), e...)
}

// Resolve returns edges when supplied, or fallback when edges is nil.
// Supplied edges are validated; a non-nil but short sequence is rejected
// rather than silently replaced.
func Resolve(edges, fallback EdgeSequence) (EdgeSequence, error) {
	if edges == nil {
		edges = fallback
	}
	if err := edges.Validate(); err != nil {
		return nil, err
	}
	return edges, nil
}

// Grid is a rectangular lattice of cells built from two edge sequences.
type Grid struct {
	X, Y EdgeSequence
}

// ResolveGrid resolves both axes of a grid, defaulting each to Default2D.
func ResolveGrid(x, y EdgeSequence) (Grid, error) {
	xe, err := Resolve(x, Default2D())
	if err != nil {
		return Grid{}, fmt.Errorf("x edges: %w", err)
	}
	ye, err := Resolve(y, Default2D())
	if err != nil {
		return Grid{}, fmt.Errorf("y edges: %w", err)
	}
	return Grid{X: xe, Y: ye}, nil
}

// DefaultGrid returns the default 2D grid.
func DefaultGrid() Grid {
	return Grid{X: Default2D(), Y: Default2D()}
}

// Validate checks both axes.
func (g Grid) Validate() error {
	if err := g.X.Validate(); err != nil {
		return fmt.Errorf("x edges: %w", err)
	}
	if err := g.Y.Validate(); err != nil {
		return fmt.Errorf("y edges: %w", err)
	}
	return nil
}

// Dims returns the number of cells along x and y.
func (g Grid) Dims() (nx, ny int) {
	return g.X.Bins(), g.Y.Bins()
}
