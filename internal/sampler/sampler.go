// Package sampler selects reproducible subsets of trajectory members.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// ErrSampleSizeUnderflow is returned when more members are requested than
// are available. Requests are never silently truncated.
var ErrSampleSizeUnderflow = errors.New("sample size underflow")

// Choose returns k distinct indices from [0, m). The same (seed, m, k)
// always yields the same indices in the same order. k == 0 yields an empty
// selection and k == m a permutation of every index.
func Choose(seed uint64, m, k int) ([]int, error) {
	if m < 0 || k < 0 {
		return nil, fmt.Errorf("%w: requested %d of %d members", ErrSampleSizeUnderflow, k, m)
	}
	if k > m {
		return nil, fmt.Errorf("%w: requested %d of %d members", ErrSampleSizeUnderflow, k, m)
	}
	idx := make([]int, k)
	if k == 0 {
		return idx, nil
	}
	sampleuv.WithoutReplacement(idx, m, Source(seed))
	return idx, nil
}

// Source returns the deterministic random source used for seed.
func Source(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
