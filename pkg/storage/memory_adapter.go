package storage

import (
	"context"
	"fmt"

	"github.com/rampart-fl/rampart/experiment"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
)

type memoryExperimentRepo struct {
	storage Storage
}

func newMemoryExperimentRepository(s Storage) ExperimentRepository {
	return &memoryExperimentRepo{storage: s}
}

func (r *memoryExperimentRepo) Create(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	if err := r.storage.Create(ctx, exp.ID, exp); err != nil {
		return experiment.Experiment{}, err
	}

	return exp, nil
}

func (r *memoryExperimentRepo) Get(ctx context.Context, id string) (experiment.Experiment, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		return experiment.Experiment{}, err
	}
	exp, ok := data.(experiment.Experiment)
	if !ok {
		return experiment.Experiment{}, pkgerrors.ErrInvalidData
	}

	return exp, nil
}

func (r *memoryExperimentRepo) Update(ctx context.Context, exp experiment.Experiment) error {
	return r.storage.Update(ctx, exp.ID, exp)
}

func (r *memoryExperimentRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Experiment, uint64, error) {
	data, total, err := r.storage.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	exps := make([]experiment.Experiment, len(data))
	for i, d := range data {
		exp, ok := d.(experiment.Experiment)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		exps[i] = exp
	}

	return exps, total, nil
}

func (r *memoryExperimentRepo) Delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, id)
}

type memoryRunRepo struct {
	storage Storage
}

func newMemoryRunRepository(s Storage) RunRepository {
	return &memoryRunRepo{storage: s}
}

func (r *memoryRunRepo) Create(ctx context.Context, run experiment.Run) (experiment.Run, error) {
	if err := r.storage.Create(ctx, run.ID, run); err != nil {
		return experiment.Run{}, err
	}

	return run, nil
}

func (r *memoryRunRepo) Get(ctx context.Context, id string) (experiment.Run, error) {
	data, err := r.storage.Get(ctx, id)
	if err != nil {
		return experiment.Run{}, err
	}
	run, ok := data.(experiment.Run)
	if !ok {
		return experiment.Run{}, pkgerrors.ErrInvalidData
	}

	return run, nil
}

func (r *memoryRunRepo) Update(ctx context.Context, run experiment.Run) error {
	return r.storage.Update(ctx, run.ID, run)
}

func (r *memoryRunRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Run, uint64, error) {
	data, total, err := r.storage.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	runs := make([]experiment.Run, len(data))
	for i, d := range data {
		run, ok := d.(experiment.Run)
		if !ok {
			return nil, 0, pkgerrors.ErrInvalidData
		}
		runs[i] = run
	}

	return runs, total, nil
}

func (r *memoryRunRepo) Delete(ctx context.Context, id string) error {
	return r.storage.Delete(ctx, id)
}

type memoryMetricsRepo struct {
	storage Storage
}

func newMemoryMetricsRepository(s Storage) MetricsRepository {
	return &memoryMetricsRepo{storage: s}
}

func (r *memoryMetricsRepo) CreateRoundMetrics(ctx context.Context, rec experiment.RoundRecord) error {
	key := fmt.Sprintf("%s:%06d", rec.RunID, rec.Round)

	return r.storage.Create(ctx, key, summarize(rec))
}

func (r *memoryMetricsRepo) ListRoundMetrics(ctx context.Context, runID string, offset, limit uint64) ([]experiment.RoundRecord, uint64, error) {
	const pageSize = 1024

	var (
		scanOffset uint64
		total      uint64
		filtered   []experiment.RoundRecord
	)

	for {
		data, allTotal, err := r.storage.List(ctx, scanOffset, pageSize)
		if err != nil {
			return nil, 0, err
		}
		if len(data) == 0 {
			break
		}

		for _, d := range data {
			rec, ok := d.(experiment.RoundRecord)
			if !ok {
				continue
			}
			if rec.RunID != runID {
				continue
			}

			if total >= offset && uint64(len(filtered)) < limit {
				filtered = append(filtered, rec)
			}
			total++
		}

		scanOffset += uint64(len(data))
		if scanOffset >= allTotal {
			break
		}
	}

	if offset >= total {
		return []experiment.RoundRecord{}, total, nil
	}

	return filtered, total, nil
}
