package storage

import (
	"context"

	"github.com/rampart-fl/rampart/experiment"
)

type ExperimentRepository interface {
	Create(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error)
	Get(ctx context.Context, id string) (experiment.Experiment, error)
	Update(ctx context.Context, exp experiment.Experiment) error
	List(ctx context.Context, offset, limit uint64) ([]experiment.Experiment, uint64, error)
	Delete(ctx context.Context, id string) error
}

type RunRepository interface {
	Create(ctx context.Context, r experiment.Run) (experiment.Run, error)
	Get(ctx context.Context, id string) (experiment.Run, error)
	Update(ctx context.Context, r experiment.Run) error
	List(ctx context.Context, offset, limit uint64) ([]experiment.Run, uint64, error)
	Delete(ctx context.Context, id string) error
}

// MetricsRepository keeps per-round summaries. The heavy payloads of a round
// record, the client and aggregated vectors, stay in the run's history store;
// repositories persist only what the listing APIs serve.
type MetricsRepository interface {
	CreateRoundMetrics(ctx context.Context, rec experiment.RoundRecord) error
	ListRoundMetrics(ctx context.Context, runID string, offset, limit uint64) ([]experiment.RoundRecord, uint64, error)
}

// summarize drops the vector payloads before a record is handed to a metrics
// backend.
func summarize(rec experiment.RoundRecord) experiment.RoundRecord {
	rec.Updates = nil
	rec.Aggregated = nil

	return rec
}
