package dataset

import "fmt"

// Trajectory is a (steps, members, coords) array. Member m refers to the
// same particle at every step; steps are ordered in pseudo-time or depth.
type Trajectory struct {
	steps, members, coords int
	data                   []float64
}

// NewTrajectory wraps row-major data indexed (step, member, coord).
// The data slice is copied.
func NewTrajectory(steps, members, coords int, data []float64) (Trajectory, error) {
	if steps < 0 || members < 0 || coords < 1 {
		return Trajectory{}, fmt.Errorf("%w: trajectory %dx%dx%d", ErrShape, steps, members, coords)
	}
	if len(data) != steps*members*coords {
		return Trajectory{}, fmt.Errorf("%w: %d values for trajectory %dx%dx%d", ErrShape, len(data), steps, members, coords)
	}
	return Trajectory{
		steps:   steps,
		members: members,
		coords:  coords,
		data:    append([]float64(nil), data...),
	}, nil
}

// TrajectoryFromSteps stacks one SampleSet per step. Every step must have
// the same shape.
func TrajectoryFromSteps(steps []SampleSet) (Trajectory, error) {
	if len(steps) == 0 {
		return Trajectory{}, fmt.Errorf("%w: no steps", ErrShape)
	}
	m, c := steps[0].Dims()
	data := make([]float64, 0, len(steps)*m*c)
	for t, s := range steps {
		sm, sc := s.Dims()
		if sm != m || sc != c {
			return Trajectory{}, fmt.Errorf("%w: step %d is %dx%d, want %dx%d", ErrShape, t, sm, sc, m, c)
		}
		data = append(data, s.Flatten()...)
	}
	return NewTrajectory(len(steps), m, c, data)
}

// Steps returns the number of time steps.
func (tr Trajectory) Steps() int { return tr.steps }

// Members returns the number of particles.
func (tr Trajectory) Members() int { return tr.members }

// Coords returns the coordinate dimension.
func (tr Trajectory) Coords() int { return tr.coords }

// At returns coordinate c of member m at step t.
func (tr Trajectory) At(t, m, c int) float64 {
	return tr.data[(t*tr.members+m)*tr.coords+c]
}

// Path returns the full path of member m as steps × coords.
func (tr Trajectory) Path(m int) [][]float64 {
	out := make([][]float64, tr.steps)
	for t := range out {
		row := make([]float64, tr.coords)
		for c := range row {
			row[c] = tr.At(t, m, c)
		}
		out[t] = row
	}
	return out
}

// Slice returns coordinate c of every member as members × steps.
func (tr Trajectory) Slice(c int) [][]float64 {
	out := make([][]float64, tr.members)
	for m := range out {
		row := make([]float64, tr.steps)
		for t := range row {
			row[t] = tr.At(t, m, c)
		}
		out[m] = row
	}
	return out
}

// Step returns the state of every member at step t.
func (tr Trajectory) Step(t int) SampleSet {
	off := t * tr.members * tr.coords
	s, _ := NewSampleSet(tr.members, tr.coords, tr.data[off:off+tr.members*tr.coords])
	return s
}

// Interpolate builds a straight-line trajectory from reference to target in
// the given number of steps. Both sets must share the same shape. It stands
// in for a trained transport map when producing demo figures.
func Interpolate(reference, target SampleSet, steps int) (Trajectory, error) {
	if steps < 2 {
		return Trajectory{}, fmt.Errorf("%w: need at least 2 steps, got %d", ErrShape, steps)
	}
	rn, rd := reference.Dims()
	tn, td := target.Dims()
	if rn != tn || rd != td {
		return Trajectory{}, fmt.Errorf("%w: reference %dx%d vs target %dx%d", ErrShape, rn, rd, tn, td)
	}
	a, b := reference.Flatten(), target.Flatten()
	data := make([]float64, 0, steps*len(a))
	for t := 0; t < steps; t++ {
		w := float64(t) / float64(steps-1)
		for i := range a {
			data = append(data, (1-w)*a[i]+w*b[i])
		}
	}
	return NewTrajectory(steps, rn, rd, data)
}
