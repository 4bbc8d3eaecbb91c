package aggregate

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type trimmedMean struct {
	cfg Config
}

// NewTrimmedMean returns the coordinate-wise trimmed mean: for every
// coordinate the configured fraction of values is cut from each tail before
// averaging. Filtering happens per coordinate, so the kept set is all
// clients.
func NewTrimmedMean(cfg Config) (Strategy, error) {
	if cfg.TrimRatio < 0 || cfg.TrimRatio >= 0.5 {
		return nil, fmt.Errorf("%w: trim ratio %v outside [0, 0.5)", errors.ErrInvalidData, cfg.TrimRatio)
	}

	return &trimmedMean{cfg: cfg}, nil
}

func (s *trimmedMean) Name() string {
	return TrimmedMean
}

func (s *trimmedMean) Aggregate(_ int, updates []Update, _ *rand.Rand) (Result, error) {
	length, err := uniformLength(updates)
	if err != nil {
		return Result{}, err
	}

	n := len(updates)
	cut := int(s.cfg.TrimRatio * float64(n))

	agg := make(vector.Vector, length)
	column := make([]float64, n)
	for c := 0; c < length; c++ {
		for i := range updates {
			column[i] = updates[i].Vector[c]
		}
		sort.Float64s(column)

		sum := 0.0
		for _, v := range column[cut : n-cut] {
			sum += v
		}
		agg[c] = sum / float64(n-2*cut)
	}

	return Result{Vector: agg, Kept: allIndices(n)}, nil
}
