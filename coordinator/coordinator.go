// Package coordinator drives federated experiments: it owns the experiment
// registry, launches runs, and steps each run through the round loop of
// sampling, local fitting, attack injection, robust aggregation, centralized
// evaluation and persistence.
package coordinator

import (
	"context"

	"github.com/rampart-fl/rampart/experiment"
)

type Service interface {
	CreateExperiment(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error)
	GetExperiment(ctx context.Context, experimentID string) (experiment.Experiment, error)
	ListExperiments(ctx context.Context, offset, limit uint64) (experiment.ExperimentPage, error)
	DeleteExperiment(ctx context.Context, experimentID string) error

	StartRun(ctx context.Context, experimentID string) (experiment.Run, error)
	GetRun(ctx context.Context, runID string) (experiment.Run, error)
	ListRuns(ctx context.Context, offset, limit uint64) (experiment.RunPage, error)
	StopRun(ctx context.Context, runID string) error

	ListRounds(ctx context.Context, runID string, offset, limit uint64) (experiment.RoundPage, error)
}
