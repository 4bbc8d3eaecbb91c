package aggregate

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type krum struct {
	cfg Config
}

// NewKrum returns multi-Krum selection: clients are scored by the summed
// squared distances to their n-f-2 nearest neighbors and the lowest scores
// are kept.
func NewKrum(cfg Config) (Strategy, error) {
	if cfg.NumToKeep < 1 {
		return nil, fmt.Errorf("%w: krum needs a positive number of clients to keep", errors.ErrInvalidData)
	}
	if cfg.NumMalicious < 0 {
		return nil, fmt.Errorf("%w: negative malicious count", errors.ErrInvalidData)
	}

	return &krum{cfg: cfg}, nil
}

func (s *krum) Name() string {
	return Krum
}

func (s *krum) Aggregate(_ int, updates []Update, _ *rand.Rand) (Result, error) {
	if _, err := uniformLength(updates); err != nil {
		return Result{}, err
	}

	n := len(updates)
	if s.cfg.NumToKeep > n {
		return Result{}, fmt.Errorf("%w: keep %d of %d", errors.ErrInsufficientClients, s.cfg.NumToKeep, n)
	}

	scores, err := krumScores(updates, allIndices(n), s.cfg.NumMalicious)
	if err != nil {
		return Result{}, err
	}

	ranked := rankByScore(scores)
	kept := append([]int(nil), ranked[:s.cfg.NumToKeep]...)
	sort.Ints(kept)

	agg, err := weightedMean(updates, kept)
	if err != nil {
		return Result{}, err
	}

	return Result{Vector: agg, Kept: kept}, nil
}

// krumScores scores each candidate by the sum of squared distances to its
// m-f-2 nearest co-candidates, m being the candidate count. Scores are
// positionally aligned with the candidates slice.
func krumScores(updates []Update, candidates []int, f int) ([]float64, error) {
	m := len(candidates)
	closest := m - f - 2
	if closest < 0 {
		return nil, fmt.Errorf("%w: %d candidates cannot tolerate %d adversaries", errors.ErrInsufficientClients, m, f)
	}

	dist := make([][]float64, m)
	for i := range dist {
		dist[i] = make([]float64, m)
	}
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			d, err := vector.SquaredDistance(updates[candidates[i]].Vector, updates[candidates[j]].Vector)
			if err != nil {
				return nil, err
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	scores := make([]float64, m)
	neighbors := make([]float64, 0, m-1)
	for i := 0; i < m; i++ {
		neighbors = neighbors[:0]
		for j := 0; j < m; j++ {
			if j != i {
				neighbors = append(neighbors, dist[i][j])
			}
		}
		sort.Float64s(neighbors)

		sum := 0.0
		for k := 0; k < closest; k++ {
			sum += neighbors[k]
		}
		scores[i] = sum
	}

	return scores, nil
}
