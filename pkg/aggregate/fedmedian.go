package aggregate

import (
	"math/rand"
	"sort"

	"github.com/rampart-fl/rampart/pkg/vector"
)

type fedMedian struct{}

// NewFedMedian returns the coordinate-wise median. An even client count
// averages the two middle values.
func NewFedMedian() Strategy {
	return &fedMedian{}
}

func (s *fedMedian) Name() string {
	return FedMedian
}

func (s *fedMedian) Aggregate(_ int, updates []Update, _ *rand.Rand) (Result, error) {
	length, err := uniformLength(updates)
	if err != nil {
		return Result{}, err
	}

	n := len(updates)
	agg := make(vector.Vector, length)
	column := make([]float64, n)
	for c := 0; c < length; c++ {
		for i := range updates {
			column[i] = updates[i].Vector[c]
		}
		sort.Float64s(column)

		if n%2 == 1 {
			agg[c] = column[n/2]
		} else {
			agg[c] = (column[n/2-1] + column[n/2]) / 2
		}
	}

	return Result{Vector: agg, Kept: allIndices(n)}, nil
}
