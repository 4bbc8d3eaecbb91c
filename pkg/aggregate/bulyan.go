package aggregate

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type bulyan struct {
	cfg Config
}

// NewBulyan returns Bulyan: Krum selection shrinks the pool to
// theta = n - 2f candidates, then each coordinate is averaged after
// trimming the f largest and f smallest values.
func NewBulyan(cfg Config) (Strategy, error) {
	if cfg.NumMalicious < 0 {
		return nil, fmt.Errorf("%w: negative malicious count", errors.ErrInvalidData)
	}

	return &bulyan{cfg: cfg}, nil
}

func (s *bulyan) Name() string {
	return Bulyan
}

func (s *bulyan) Aggregate(_ int, updates []Update, _ *rand.Rand) (Result, error) {
	length, err := uniformLength(updates)
	if err != nil {
		return Result{}, err
	}

	n := len(updates)
	f := s.cfg.NumMalicious
	theta := n - 2*f
	beta := f
	if theta < 1 {
		return Result{}, fmt.Errorf("%w: %d clients leave no candidates against %d adversaries", errors.ErrInsufficientClients, n, f)
	}
	if theta-2*beta < 1 {
		return Result{}, fmt.Errorf("%w: %d candidates cannot be trimmed by %d per side", errors.ErrInsufficientClients, theta, beta)
	}

	remaining := allIndices(n)
	selected := make([]int, 0, theta)
	for len(selected) < theta {
		if len(remaining) == 1 {
			selected = append(selected, remaining[0])
			remaining = remaining[:0]

			continue
		}

		scores, err := krumScores(updates, remaining, f)
		if err != nil {
			return Result{}, err
		}

		best := 0
		for pos := 1; pos < len(remaining); pos++ {
			if scores[pos] < scores[best] || (scores[pos] == scores[best] && remaining[pos] < remaining[best]) {
				best = pos
			}
		}
		selected = append(selected, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	sort.Ints(selected)

	agg := make(vector.Vector, length)
	column := make([]float64, theta)
	for c := 0; c < length; c++ {
		for k, idx := range selected {
			column[k] = updates[idx].Vector[c]
		}
		sort.Float64s(column)

		sum := 0.0
		for _, v := range column[beta : theta-beta] {
			sum += v
		}
		agg[c] = sum / float64(theta-2*beta)
	}

	return Result{Vector: agg, Kept: selected}, nil
}
