// Package density fits Gaussian kernel density estimates and evaluates them
// on regular grids for contour and heat-map panels.
//
// A fitted KDE is immutable and may be evaluated any number of times, so a
// sample set shown in several panels is fitted once.
package density

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kode-ml/kode/internal/binning"
	"github.com/kode-ml/kode/internal/dataset"
)

// ErrDegenerate is returned when a sample set cannot support a kernel
// density estimate: too few samples, (near) zero variance on an axis or a
// singular covariance. Callers should skip or substitute the panel.
var ErrDegenerate = errors.New("degenerate density input")

const (
	// relVarianceTol is the smallest per-axis standard deviation, relative
	// to the axis scale, that still counts as spread.
	relVarianceTol = 1e-9
	// maxCond bounds the covariance condition number.
	maxCond = 1e12
)

// Bandwidth selects the kernel scaling factor from the sample count n and
// dimension d.
type Bandwidth func(n, d int) float64

// Scott is Scott's rule, n^(-1/(d+4)).
func Scott(n, d int) float64 {
	return math.Pow(float64(n), -1/float64(d+4))
}

// Silverman is Silverman's rule, (n(d+2)/4)^(-1/(d+4)).
func Silverman(n, d int) float64 {
	return math.Pow(float64(n)*float64(d+2)/4, -1/float64(d+4))
}

// Factor returns a rule that always yields f, matching a scalar
// bandwidth-method setting.
func Factor(f float64) Bandwidth {
	return func(int, int) float64 { return f }
}

// KDE is a fitted Gaussian kernel density estimate in d dimensions.
type KDE struct {
	points  []float64 // n × d, row major
	n, d    int
	factor  float64
	prec    []float64 // d × d inverse kernel covariance, row major
	logNorm float64
}

// Option configures Fit.
type Option func(*fitOptions)

type fitOptions struct {
	bw Bandwidth
}

// WithBandwidth overrides the default Scott rule.
func WithBandwidth(bw Bandwidth) Option {
	return func(o *fitOptions) { o.bw = bw }
}

// Fit estimates the density of samples. The kernel covariance is the sample
// covariance scaled by the squared bandwidth factor.
func Fit(samples dataset.SampleSet, opts ...Option) (*KDE, error) {
	o := fitOptions{bw: Scott}
	for _, opt := range opts {
		opt(&o)
	}

	n, d := samples.Dims()
	if d == 0 || n < d+1 {
		return nil, fmt.Errorf("%w: %d samples in %d dimensions", ErrDegenerate, n, d)
	}
	if !samples.Finite() {
		return nil, fmt.Errorf("%w: non-finite samples", ErrDegenerate)
	}

	for j := 0; j < d; j++ {
		col := samples.Col(j)
		mean, std := stat.MeanStdDev(col, nil)
		scale := math.Max(1, math.Abs(mean))
		if !(std > relVarianceTol*scale) {
			return nil, fmt.Errorf("%w: axis %d has standard deviation %g", ErrDegenerate, j, std)
		}
	}

	factor := o.bw(n, d)
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("%w: bandwidth factor %g", ErrDegenerate, factor)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, samples.Matrix(), nil)
	cov.ScaleSym(factor*factor, &cov)

	var chol mat.Cholesky
	if ok := chol.Factorize(&cov); !ok {
		return nil, fmt.Errorf("%w: kernel covariance is not positive definite", ErrDegenerate)
	}
	if c := chol.Cond(); c > maxCond || math.IsNaN(c) {
		return nil, fmt.Errorf("%w: kernel covariance condition number %g", ErrDegenerate, c)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	k := &KDE{
		points:  samples.Flatten(),
		n:       n,
		d:       d,
		factor:  factor,
		prec:    make([]float64, d*d),
		logNorm: -0.5*(float64(d)*math.Log(2*math.Pi)+chol.LogDet()) - math.Log(float64(n)),
	}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			k.prec[i*d+j] = inv.At(i, j)
		}
	}
	diagf("fit n=%d d=%d factor=%.4f cond=%.3g", n, d, factor, chol.Cond())
	return k, nil
}

// Dim returns the dimension of the fitted samples.
func (k *KDE) Dim() int { return k.d }

// Factor returns the bandwidth factor used for the fit.
func (k *KDE) Factor() float64 { return k.factor }

// At evaluates the density at x, which must have length Dim.
func (k *KDE) At(x []float64) float64 {
	d := k.d
	diff := make([]float64, d)
	sum := 0.0
	for i := 0; i < k.n; i++ {
		p := k.points[i*d : (i+1)*d]
		for a := range diff {
			diff[a] = x[a] - p[a]
		}
		q := 0.0
		for a := 0; a < d; a++ {
			row := k.prec[a*d : (a+1)*d]
			s := 0.0
			for b := 0; b < d; b++ {
				s += row[b] * diff[b]
			}
			q += diff[a] * s
		}
		sum += math.Exp(-0.5 * q)
	}
	return sum * math.Exp(k.logNorm)
}

// EvaluateMesh evaluates a 2D estimate at every (xs[c], ys[r]) and returns
// a len(ys) × len(xs) matrix.
func (k *KDE) EvaluateMesh(xs, ys []float64) (*mat.Dense, error) {
	if k.d != 2 {
		return nil, fmt.Errorf("%w: mesh evaluation needs a 2D estimate, have %dD", binning.ErrShapeMismatch, k.d)
	}
	if len(xs) == 0 || len(ys) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", binning.ErrShapeMismatch)
	}
	start := time.Now()
	out := mat.NewDense(len(ys), len(xs), nil)
	pt := make([]float64, 2)
	for r, y := range ys {
		for c, x := range xs {
			pt[0], pt[1] = x, y
			v := k.At(pt)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				opsf("non-finite density %g at (%g, %g)", v, x, y)
				return nil, fmt.Errorf("%w: non-finite density at (%g, %g)", ErrDegenerate, x, y)
			}
			out.Set(r, c, v)
		}
	}
	tracef("evaluated %d points over %d samples in %s", len(xs)*len(ys), k.n, time.Since(start))
	return out, nil
}

// Evaluate evaluates a 2D estimate at every cell centre of g.
func (k *KDE) Evaluate(g binning.Grid) (*Field, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	v, err := k.EvaluateMesh(g.X.Centers(), g.Y.Centers())
	if err != nil {
		return nil, err
	}
	return NewField(g, v)
}

// Estimate fits samples and evaluates the result over g in one call.
func Estimate(samples dataset.SampleSet, g binning.Grid, opts ...Option) (*Field, error) {
	if d := samples.Dim(); d != 2 {
		return nil, fmt.Errorf("%w: density field needs 2D samples, have %dD", binning.ErrShapeMismatch, d)
	}
	k, err := Fit(samples, opts...)
	if err != nil {
		opsf("skipping density estimate: %v", err)
		return nil, err
	}
	return k.Evaluate(g)
}
