// Package aggregate implements the robust aggregation strategies that combine
// one round's client updates into the next global model. Every strategy is a
// pure function of its inputs and a caller-supplied random source, so a run
// is reproducible from its seed.
package aggregate

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

const (
	FedAvg      = "fedavg"
	Krum        = "krum"
	Bulyan      = "bulyan"
	TrimmedMean = "trimmedmean"
	FedMedian   = "fedmedian"
	DnC         = "dnc"
	Flanders    = "flanders"
)

// Update is one client's flattened parameters for the current round together
// with its sample count, used as the averaging weight.
type Update struct {
	Vector vector.Vector
	Weight int64
}

// Result is a strategy's decision for one round: the aggregated parameters
// and the indices, ascending, of the clients judged good.
type Result struct {
	Vector vector.Vector
	Kept   []int
}

// Config carries the numeric parameters of the configured strategy. It is
// bound once at run start and never mutated.
type Config struct {
	// NumMalicious is f, the number of adversarial clients the defense
	// assumes.
	NumMalicious int
	// NumToKeep is how many clients krum-style selection retains.
	NumToKeep int
	// TrimRatio is the fraction of values cut from each tail of every
	// coordinate by the trimmed mean.
	TrimRatio float64
	// NumIters, SampleWidth and Multiplier parameterize divide-and-conquer
	// filtering: iteration count, coordinate subsample width b (0 disables
	// subsampling) and the filtering multiplier c.
	NumIters    int
	SampleWidth int
	Multiplier  float64
	// Window is how many past rounds the history-aware detector consults;
	// rounds below it are warmup and are never filtered.
	Window int
	// Threshold, when positive, additionally excludes clients whose
	// forecast deviation exceeds it.
	Threshold float64
	// Omniscient marks MaliciousIDs directly instead of forecasting.
	Omniscient   bool
	MaliciousIDs []int
}

// History is the read-only view of prior rounds the history-aware detector
// consumes. Implementations never expose the round being aggregated.
type History interface {
	// Window returns up to n rounds of per-client vectors for rounds
	// strictly before the given one, oldest first. Every returned round
	// holds one vector per pool client, index aligned.
	Window(round, n int) ([][]vector.Vector, error)
	// Project maps a full-length vector into the store's coordinate
	// space. Stores that persist full vectors return the input unchanged.
	Project(v vector.Vector) vector.Vector
}

// Strategy combines one round's updates. Implementations draw randomness
// only from the supplied source and are deterministic for a fixed input
// order and seed.
type Strategy interface {
	Name() string
	Aggregate(round int, updates []Update, rng *rand.Rand) (Result, error)
}

// New resolves a strategy name to its implementation. Unknown names fail
// here, before any round runs. The history store is only required by the
// history-aware detector.
func New(name string, cfg Config, hist History) (Strategy, error) {
	switch name {
	case FedAvg:
		return NewFedAvg(), nil
	case Krum:
		return NewKrum(cfg)
	case Bulyan:
		return NewBulyan(cfg)
	case TrimmedMean:
		return NewTrimmedMean(cfg)
	case FedMedian:
		return NewFedMedian(), nil
	case DnC:
		return NewDnC(cfg)
	case Flanders:
		return NewFlanders(cfg, hist)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, name)
	}
}

// Names lists the supported strategy names in presentation order.
func Names() []string {
	return []string{FedAvg, Krum, Bulyan, TrimmedMean, FedMedian, DnC, Flanders}
}

// uniformLength verifies that every update shares one vector length and
// returns it.
func uniformLength(updates []Update) (int, error) {
	if len(updates) == 0 {
		return 0, fmt.Errorf("%w: no updates", errors.ErrInsufficientClients)
	}

	length := len(updates[0].Vector)
	for i := range updates {
		if len(updates[i].Vector) != length {
			return 0, fmt.Errorf("%w: update %d has %d elements, expected %d", errors.ErrDimensionMismatch, i, len(updates[i].Vector), length)
		}
	}

	return length, nil
}

// weightedMean averages the selected updates weighted by sample count. A
// zero total weight degrades to equal weights so that an all-empty round
// still aggregates deterministically.
func weightedMean(updates []Update, kept []int) (vector.Vector, error) {
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: empty kept set", errors.ErrInsufficientClients)
	}

	length := len(updates[kept[0]].Vector)
	out := make(vector.Vector, length)

	var total int64
	for _, idx := range kept {
		total += updates[idx].Weight
	}

	for _, idx := range kept {
		u := updates[idx]
		if len(u.Vector) != length {
			return nil, fmt.Errorf("%w: update %d has %d elements, expected %d", errors.ErrDimensionMismatch, idx, len(u.Vector), length)
		}

		w := 1.0
		if total > 0 {
			w = float64(u.Weight) / float64(total)
		} else {
			w = 1.0 / float64(len(kept))
		}
		for i, v := range u.Vector {
			out[i] += v * w
		}
	}

	return out, nil
}

// allIndices returns 0..n-1.
func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	return idx
}

// rankByScore orders client indices by ascending score, breaking ties in
// favor of the lowest index.
func rankByScore(scores []float64) []int {
	idx := allIndices(len(scores))
	sort.SliceStable(idx, func(i, j int) bool {
		if scores[idx[i]] != scores[idx[j]] {
			return scores[idx[i]] < scores[idx[j]]
		}

		return idx[i] < idx[j]
	})

	return idx
}
