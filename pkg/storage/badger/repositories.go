package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rampart-fl/rampart/experiment"
)

const (
	experimentPrefix = "experiment:"
	runPrefix        = "run:"
	metricsPrefix    = "metrics:"
)

type experimentRepo struct {
	db *Database
}

func NewExperimentRepository(db *Database) ExperimentRepository {
	return &experimentRepo{db: db}
}

func experimentKey(id string) []byte {
	return []byte(experimentPrefix + id)
}

func (r *experimentRepo) Create(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	if err := r.db.put(experimentKey(exp.ID), exp); err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	return exp, nil
}

func (r *experimentRepo) Get(ctx context.Context, id string) (experiment.Experiment, error) {
	var exp experiment.Experiment
	if err := r.db.fetch(experimentKey(id), &exp); err != nil {
		return experiment.Experiment{}, ErrExperimentNotFound
	}

	return exp, nil
}

func (r *experimentRepo) Update(ctx context.Context, exp experiment.Experiment) error {
	if err := r.db.put(experimentKey(exp.ID), exp); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}

	return nil
}

func (r *experimentRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Experiment, uint64, error) {
	exps := make([]experiment.Experiment, 0, limit)
	total, err := r.db.scanPrefix([]byte(experimentPrefix), offset, limit, func(val []byte) error {
		var exp experiment.Experiment
		if err := json.Unmarshal(val, &exp); err != nil {
			return err
		}
		exps = append(exps, exp)

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return exps, total, nil
}

func (r *experimentRepo) Delete(ctx context.Context, id string) error {
	return r.db.remove(experimentKey(id))
}

type runRepo struct {
	db *Database
}

func NewRunRepository(db *Database) RunRepository {
	return &runRepo{db: db}
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

func (r *runRepo) Create(ctx context.Context, run experiment.Run) (experiment.Run, error) {
	if err := r.db.put(runKey(run.ID), run); err != nil {
		return experiment.Run{}, fmt.Errorf("%w: %v", ErrCreate, err)
	}

	return run, nil
}

func (r *runRepo) Get(ctx context.Context, id string) (experiment.Run, error) {
	var run experiment.Run
	if err := r.db.fetch(runKey(id), &run); err != nil {
		return experiment.Run{}, ErrRunNotFound
	}

	return run, nil
}

func (r *runRepo) Update(ctx context.Context, run experiment.Run) error {
	if err := r.db.put(runKey(run.ID), run); err != nil {
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}

	return nil
}

func (r *runRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Run, uint64, error) {
	runs := make([]experiment.Run, 0, limit)
	total, err := r.db.scanPrefix([]byte(runPrefix), offset, limit, func(val []byte) error {
		var run experiment.Run
		if err := json.Unmarshal(val, &run); err != nil {
			return err
		}
		runs = append(runs, run)

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

func (r *runRepo) Delete(ctx context.Context, id string) error {
	return r.db.remove(runKey(id))
}

type metricsRepo struct {
	db *Database
}

func NewMetricsRepository(db *Database) MetricsRepository {
	return &metricsRepo{db: db}
}

// Round keys are zero-padded so the prefix scan yields rounds in order.
func roundKey(runID string, round int) []byte {
	return []byte(fmt.Sprintf("%s%s:%06d", metricsPrefix, runID, round))
}

func (r *metricsRepo) CreateRoundMetrics(ctx context.Context, rec experiment.RoundRecord) error {
	rec.Updates = nil
	rec.Aggregated = nil

	if err := r.db.put(roundKey(rec.RunID, rec.Round), rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCreate, err)
	}

	return nil
}

func (r *metricsRepo) ListRoundMetrics(ctx context.Context, runID string, offset, limit uint64) ([]experiment.RoundRecord, uint64, error) {
	recs := make([]experiment.RoundRecord, 0, limit)
	total, err := r.db.scanPrefix([]byte(metricsPrefix+runID+":"), offset, limit, func(val []byte) error {
		var rec experiment.RoundRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)

		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return recs, total, nil
}
