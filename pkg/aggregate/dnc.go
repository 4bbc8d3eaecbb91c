package aggregate

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/rampart-fl/rampart/pkg/errors"
)

type dnc struct {
	cfg Config
}

// NewDnC returns divide-and-conquer filtering. Each iteration projects the
// updates onto a random coordinate subsample, scores every client by its
// centered component along the dominant right singular direction, and keeps
// the n - c*f lowest scores; only clients kept by every iteration survive.
func NewDnC(cfg Config) (Strategy, error) {
	if cfg.NumIters < 1 {
		return nil, fmt.Errorf("%w: dnc needs at least one iteration", errors.ErrInvalidData)
	}
	if cfg.SampleWidth < 0 {
		return nil, fmt.Errorf("%w: negative subsample width", errors.ErrInvalidData)
	}
	if cfg.Multiplier < 0 {
		return nil, fmt.Errorf("%w: negative filtering multiplier", errors.ErrInvalidData)
	}
	if cfg.NumMalicious < 0 {
		return nil, fmt.Errorf("%w: negative malicious count", errors.ErrInvalidData)
	}

	return &dnc{cfg: cfg}, nil
}

func (s *dnc) Name() string {
	return DnC
}

func (s *dnc) Aggregate(_ int, updates []Update, rng *rand.Rand) (Result, error) {
	length, err := uniformLength(updates)
	if err != nil {
		return Result{}, err
	}

	n := len(updates)
	toKeep := n - int(s.cfg.Multiplier*float64(s.cfg.NumMalicious))
	if toKeep < 1 {
		return Result{}, fmt.Errorf("%w: filtering %d of %d clients leaves none", errors.ErrInsufficientClients, n-toKeep, n)
	}
	if toKeep > n {
		toKeep = n
	}

	var surviving map[int]struct{}
	for iter := 0; iter < s.cfg.NumIters; iter++ {
		width := length
		var coords []int
		if s.cfg.SampleWidth > 0 && length > s.cfg.SampleWidth {
			width = s.cfg.SampleWidth
			coords = make([]int, width)
			for i := range coords {
				coords[i] = rng.Intn(length)
			}
		}

		projected := mat.NewDense(n, width, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < width; j++ {
				if coords != nil {
					projected.Set(i, j, updates[i].Vector[coords[j]])
				} else {
					projected.Set(i, j, updates[i].Vector[j])
				}
			}
		}

		for j := 0; j < width; j++ {
			mean := 0.0
			for i := 0; i < n; i++ {
				mean += projected.At(i, j)
			}
			mean /= float64(n)
			for i := 0; i < n; i++ {
				projected.Set(i, j, projected.At(i, j)-mean)
			}
		}

		// A degenerate factorization leaves every score equal, so the
		// ranking falls back to index order.
		scores := make([]float64, n)
		var svd mat.SVD
		if svd.Factorize(projected, mat.SVDThin) {
			var v mat.Dense
			svd.VTo(&v)
			for i := 0; i < n; i++ {
				dot := 0.0
				for j := 0; j < width; j++ {
					dot += projected.At(i, j) * v.At(j, 0)
				}
				scores[i] = dot * dot
			}
		}

		ranked := rankByScore(scores)
		if surviving == nil {
			surviving = make(map[int]struct{}, toKeep)
			for _, idx := range ranked[:toKeep] {
				surviving[idx] = struct{}{}
			}

			continue
		}

		next := make(map[int]struct{}, toKeep)
		for _, idx := range ranked[:toKeep] {
			if _, ok := surviving[idx]; ok {
				next[idx] = struct{}{}
			}
		}
		surviving = next
	}

	if len(surviving) == 0 {
		return Result{}, fmt.Errorf("%w: empty intersection across %d filtering iterations", errors.ErrInsufficientClients, s.cfg.NumIters)
	}

	kept := make([]int, 0, len(surviving))
	for idx := range surviving {
		kept = append(kept, idx)
	}
	sort.Ints(kept)

	agg, err := weightedMean(updates, kept)
	if err != nil {
		return Result{}, err
	}

	return Result{Vector: agg, Kept: kept}, nil
}
