package main

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kode-ml/kode/internal/dataset"
	"github.com/kode-ml/kode/internal/render"
)

// lossCurves maps the named columns of a loss table onto render.LossCurves.
// Rows whose epoch or value is NaN are dropped from that series only.
func lossCurves(s dataset.SampleSet, header []string) (render.LossCurves, error) {
	if header == nil {
		return render.LossCurves{}, fmt.Errorf("loss table needs a header row")
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ep, ok := col["epoch"]
	if !ok {
		return render.LossCurves{}, fmt.Errorf("loss table has no epoch column (have %v)", header)
	}
	testEp, ok := col["test_epoch"]
	if !ok {
		testEp = ep
	}

	series := func(name string, epochCol int) (epochs, values []float64) {
		j, ok := col[name]
		if !ok {
			return nil, nil
		}
		e, v := s.Col(epochCol), s.Col(j)
		epochs, values = []float64{}, []float64{}
		for i := range v {
			if math.IsNaN(e[i]) || math.IsNaN(v[i]) {
				continue
			}
			epochs = append(epochs, e[i])
			values = append(values, v[i])
		}
		return epochs, values
	}

	var c render.LossCurves
	var trainEpochs [3][]float64
	trainEpochs[0], c.Train = series("train", ep)
	trainEpochs[1], c.RKHS = series("rkhs", ep)
	trainEpochs[2], c.H1 = series("h1", ep)
	c.TestEpochs, c.Test = series("test", testEp)

	// Train-cadence series share one epoch axis.
	for _, e := range trainEpochs {
		if e == nil {
			continue
		}
		if c.TrainEpochs == nil {
			c.TrainEpochs = e
		} else if !slices.Equal(e, c.TrainEpochs) {
			return render.LossCurves{}, fmt.Errorf("%w: train, rkhs and h1 must be present on the same rows", render.ErrShapeMismatch)
		}
	}
	if c.Train == nil && c.RKHS == nil && c.H1 == nil && c.Test == nil {
		return render.LossCurves{}, fmt.Errorf("loss table has none of train, rkhs, h1, test")
	}
	return c, nil
}
