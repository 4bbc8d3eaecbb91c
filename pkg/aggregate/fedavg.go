package aggregate

import "math/rand"

type fedAvg struct{}

// NewFedAvg returns the undefended baseline: the weighted mean over every
// update, keeping all clients.
func NewFedAvg() Strategy {
	return &fedAvg{}
}

func (s *fedAvg) Name() string {
	return FedAvg
}

func (s *fedAvg) Aggregate(_ int, updates []Update, _ *rand.Rand) (Result, error) {
	if _, err := uniformLength(updates); err != nil {
		return Result{}, err
	}

	kept := allIndices(len(updates))
	agg, err := weightedMean(updates, kept)
	if err != nil {
		return Result{}, err
	}

	return Result{Vector: agg, Kept: kept}, nil
}
