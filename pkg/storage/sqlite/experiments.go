package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rampart-fl/rampart/experiment"
)

type experimentRepo struct {
	db *Database
}

func NewExperimentRepository(db *Database) ExperimentRepository {
	return &experimentRepo{db: db}
}

type dbExperiment struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Dataset      string    `db:"dataset"`
	PoolSize     int       `db:"pool_size"`
	NumRounds    int       `db:"num_rounds"`
	WarmupRounds int       `db:"warmup_rounds"`
	Epochs       int       `db:"epochs"`
	BatchSize    int       `db:"batch_size"`
	Sampling     float64   `db:"sampling"`
	Seed         int64     `db:"seed"`
	Strategy     []byte    `db:"strategy"`
	Attack       []byte    `db:"attack"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *experimentRepo) Create(ctx context.Context, exp experiment.Experiment) (experiment.Experiment, error) {
	query := `INSERT INTO experiments (id, name, dataset, pool_size, num_rounds, warmup_rounds, epochs, batch_size, sampling, seed, strategy, attack, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	strategy, err := json.Marshal(exp.Strategy)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("marshal error: %w", err)
	}
	attack, err := json.Marshal(exp.Attack)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("marshal error: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		exp.ID, exp.Name, exp.Dataset, exp.PoolSize, exp.NumRounds,
		exp.WarmupRounds, exp.Epochs, exp.BatchSize, exp.Sampling, exp.Seed,
		strategy, attack, exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return exp, nil
}

func (r *experimentRepo) Get(ctx context.Context, id string) (experiment.Experiment, error) {
	query := `SELECT id, name, dataset, pool_size, num_rounds, warmup_rounds, epochs, batch_size, sampling, seed, strategy, attack, created_at, updated_at
		FROM experiments WHERE id = ?`

	var dbe dbExperiment
	if err := r.db.GetContext(ctx, &dbe, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return experiment.Experiment{}, ErrExperimentNotFound
		}

		return experiment.Experiment{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toExperiment(dbe)
}

func (r *experimentRepo) Update(ctx context.Context, exp experiment.Experiment) error {
	query := `UPDATE experiments SET
		name = ?, dataset = ?, pool_size = ?, num_rounds = ?, warmup_rounds = ?,
		epochs = ?, batch_size = ?, sampling = ?, seed = ?, strategy = ?, attack = ?,
		updated_at = ?
		WHERE id = ?`

	strategy, err := json.Marshal(exp.Strategy)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	attack, err := json.Marshal(exp.Attack)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query,
		exp.Name, exp.Dataset, exp.PoolSize, exp.NumRounds, exp.WarmupRounds,
		exp.Epochs, exp.BatchSize, exp.Sampling, exp.Seed, strategy, attack,
		exp.UpdatedAt, exp.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExperimentNotFound
	}

	return nil
}

func (r *experimentRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Experiment, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM experiments`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, name, dataset, pool_size, num_rounds, warmup_rounds, epochs, batch_size, sampling, seed, strategy, attack, created_at, updated_at
		FROM experiments ORDER BY created_at LIMIT ? OFFSET ?`

	var dbes []dbExperiment
	if err := r.db.SelectContext(ctx, &dbes, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	exps := make([]experiment.Experiment, len(dbes))
	for i, dbe := range dbes {
		exp, err := toExperiment(dbe)
		if err != nil {
			return nil, 0, err
		}
		exps[i] = exp
	}

	return exps, total, nil
}

func (r *experimentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func toExperiment(dbe dbExperiment) (experiment.Experiment, error) {
	exp := experiment.Experiment{
		ID:           dbe.ID,
		Name:         dbe.Name,
		Dataset:      dbe.Dataset,
		PoolSize:     dbe.PoolSize,
		NumRounds:    dbe.NumRounds,
		WarmupRounds: dbe.WarmupRounds,
		Epochs:       dbe.Epochs,
		BatchSize:    dbe.BatchSize,
		Sampling:     dbe.Sampling,
		Seed:         dbe.Seed,
		CreatedAt:    dbe.CreatedAt,
		UpdatedAt:    dbe.UpdatedAt,
	}
	if err := json.Unmarshal(dbe.Strategy, &exp.Strategy); err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}
	if err := json.Unmarshal(dbe.Attack, &exp.Attack); err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	return exp, nil
}
