package aggregate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type flanders struct {
	cfg  Config
	hist History
}

// NewFlanders returns the history-aware detector: each client's update is
// compared against a forecast extrapolated from its last Window rounds, and
// the NumToKeep clients with the smallest deviation survive. The first
// Window rounds are warmup and keep everyone.
func NewFlanders(cfg Config, hist History) (Strategy, error) {
	if hist == nil {
		return nil, fmt.Errorf("%w: detector needs a history store", errors.ErrInvalidData)
	}
	if cfg.Window < 1 {
		return nil, fmt.Errorf("%w: window must be positive", errors.ErrInvalidData)
	}
	if cfg.NumToKeep < 1 {
		return nil, fmt.Errorf("%w: detector needs a positive number of clients to keep", errors.ErrInvalidData)
	}

	return &flanders{cfg: cfg, hist: hist}, nil
}

func (s *flanders) Name() string {
	return Flanders
}

func (s *flanders) Aggregate(round int, updates []Update, _ *rand.Rand) (Result, error) {
	if _, err := uniformLength(updates); err != nil {
		return Result{}, err
	}

	n := len(updates)
	if round < s.cfg.Window {
		return s.keepAll(updates)
	}

	window, err := s.hist.Window(round, s.cfg.Window)
	if err != nil {
		return Result{}, err
	}
	if len(window) == 0 {
		return s.keepAll(updates)
	}

	deviations := make([]float64, n)
	if s.cfg.Omniscient {
		for _, id := range s.cfg.MaliciousIDs {
			if id >= 0 && id < n {
				deviations[id] = math.Inf(1)
			}
		}
	} else {
		for i := 0; i < n; i++ {
			actual := s.hist.Project(updates[i].Vector)
			forecast, err := forecastNext(window, i, len(actual))
			if err != nil {
				return Result{}, err
			}
			d, err := vector.Distance(actual, forecast)
			if err != nil {
				return Result{}, err
			}
			deviations[i] = d
		}
	}

	keep := s.cfg.NumToKeep
	if keep > n {
		keep = n
	}
	ranked := rankByScore(deviations)
	kept := append([]int(nil), ranked[:keep]...)

	if s.cfg.Threshold > 0 {
		under := kept[:0]
		for _, idx := range kept {
			if deviations[idx] <= s.cfg.Threshold {
				under = append(under, idx)
			}
		}
		kept = under
	}
	if len(kept) == 0 {
		return Result{}, fmt.Errorf("%w: every client exceeded the deviation threshold", errors.ErrInsufficientClients)
	}
	sort.Ints(kept)

	agg, err := weightedMean(updates, kept)
	if err != nil {
		return Result{}, err
	}

	return Result{Vector: agg, Kept: kept}, nil
}

func (s *flanders) keepAll(updates []Update) (Result, error) {
	kept := allIndices(len(updates))
	agg, err := weightedMean(updates, kept)
	if err != nil {
		return Result{}, err
	}

	return Result{Vector: agg, Kept: kept}, nil
}

// forecastNext extrapolates one client's next vector from its window series
// by a per-coordinate linear least-squares fit over time. Windows too short
// or too degenerate to fit fall back to the latest observation.
func forecastNext(window [][]vector.Vector, client, dim int) (vector.Vector, error) {
	w := len(window)
	series := make([]vector.Vector, w)
	for t := 0; t < w; t++ {
		if client >= len(window[t]) {
			return nil, fmt.Errorf("%w: round snapshot holds %d clients, need index %d", errors.ErrInvalidData, len(window[t]), client)
		}
		if len(window[t][client]) != dim {
			return nil, fmt.Errorf("%w: snapshot vector of %d against %d", errors.ErrDimensionMismatch, len(window[t][client]), dim)
		}
		series[t] = window[t][client]
	}

	if w == 1 {
		return series[0].Clone(), nil
	}

	design := mat.NewDense(w, 2, nil)
	observed := mat.NewDense(w, dim, nil)
	for t := 0; t < w; t++ {
		design.Set(t, 0, 1)
		design.Set(t, 1, float64(t))
		observed.SetRow(t, series[t])
	}

	var coef mat.Dense
	if err := coef.Solve(design, observed); err != nil {
		return series[w-1].Clone(), nil
	}

	forecast := make(vector.Vector, dim)
	for j := 0; j < dim; j++ {
		forecast[j] = coef.At(0, j) + float64(w)*coef.At(1, j)
	}

	return forecast, nil
}
