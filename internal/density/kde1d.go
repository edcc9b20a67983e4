package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// KDE1D is a fitted one-dimensional Gaussian kernel density estimate.
type KDE1D struct {
	values    []float64
	bandwidth float64
}

// Fit1D fits values with kernel width std(values) × factor, the convention
// of a scalar bandwidth-method setting.
func Fit1D(values []float64, factor float64) (*KDE1D, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrDegenerate, len(values))
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("%w: bandwidth factor %g", ErrDegenerate, factor)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite samples", ErrDegenerate)
		}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if !(std > relVarianceTol*math.Max(1, math.Abs(mean))) {
		return nil, fmt.Errorf("%w: standard deviation %g", ErrDegenerate, std)
	}
	diagf("fit1d n=%d bandwidth=%.4g", len(values), std*factor)
	return &KDE1D{values: append([]float64(nil), values...), bandwidth: std * factor}, nil
}

// Bandwidth returns the kernel standard deviation.
func (k *KDE1D) Bandwidth() float64 { return k.bandwidth }

// At evaluates the density at x.
func (k *KDE1D) At(x float64) float64 {
	sum := 0.0
	for _, v := range k.values {
		sum += distuv.Normal{Mu: v, Sigma: k.bandwidth}.Prob(x)
	}
	return sum / float64(len(k.values))
}

// Evaluate returns the density at every x in xs.
func (k *KDE1D) Evaluate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = k.At(x)
	}
	return out
}

// Support returns n evenly spaced points from min-cut·bw to max+cut·bw,
// the range over which the estimate is usually drawn.
func (k *KDE1D) Support(n int, cut float64) []float64 {
	if n < 2 {
		n = 2
	}
	lo := floats.Min(k.values) - cut*k.bandwidth
	hi := floats.Max(k.values) + cut*k.bandwidth
	return floats.Span(make([]float64, n), lo, hi)
}
