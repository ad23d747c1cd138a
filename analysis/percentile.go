// Description: This package selects the samples of one parameter set and summarizes
// a latency column with percentiles.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gaebench/samples"
)

var (
	ErrEmptySample     = errors.New("no samples to compute percentiles from")
	ErrPercentileRange = errors.New("percentile must be within [0, 100]")
)

// EmptySampleError is returned when a (parameter set, column) combination
// of a file matched no rows
type EmptySampleError struct {
	File   string
	Params string
	Column string
}

func (e *EmptySampleError) Error() string {
	return fmt.Sprintf("no samples in %s for params %s, column %q", e.File, e.Params, e.Column)
}

func (e *EmptySampleError) Unwrap() error {
	return ErrEmptySample
}

// Extract returns the values of column for every sample whose serialized
// parameter set equals params, in file order
func Extract(t *samples.Table, params string, column string) ([]float64, error) {
	if !samples.IsMetricColumn(column) || !t.Has(column) {
		return nil, &samples.MissingColumnError{File: t.Name, Column: column}
	}
	if !t.Has(samples.ColParams) {
		return nil, &samples.MissingColumnError{File: t.Name, Column: samples.ColParams}
	}

	values := make([]float64, 0)
	for i := range t.Samples {
		s := &t.Samples[i]
		if s.Params != params {
			continue
		}
		v, _ := s.Metric(column)
		values = append(values, v)
	}
	return values, nil
}

// Percentiles computes each requested percentile of values by linear
// interpolation between the closest ranks, so the 0th and 100th percentiles
// are the minimum and maximum. values is not modified.
func Percentiles(values []float64, ps []float64) (map[float64]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptySample
	}
	for _, p := range ps {
		if math.IsNaN(p) || p < 0 || p > 100 {
			return nil, fmt.Errorf("%w: got %v", ErrPercentileRange, p)
		}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	res := make(map[float64]float64, len(ps))
	for _, p := range ps {
		res[p] = percentile(sorted, p)
	}
	return res, nil
}

// percentile follows numpy's linear method step by step, including the order of
// floating point operations, so results match the Python reports to the last digit
func percentile(sorted []float64, p float64) float64 {
	q := p / 100
	rank := float64(float64(len(sorted))*q) + (1 - q) - 1
	last := len(sorted) - 1
	switch {
	case rank >= float64(last):
		return sorted[last]
	case rank < 0:
		return sorted[0]
	}
	lo := math.Floor(rank)
	return lerp(sorted[int(lo)], sorted[int(lo)+1], rank-lo)
}

// lerp interpolates from whichever end is closer to t
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - float64(diff*(1-t))
	}
	return a + float64(diff*t)
}
