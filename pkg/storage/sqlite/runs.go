package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rampart-fl/rampart/experiment"
)

type runRepo struct {
	db *Database
}

func NewRunRepository(db *Database) RunRepository {
	return &runRepo{db: db}
}

type dbRun struct {
	ID           string       `db:"id"`
	ExperimentID string       `db:"experiment_id"`
	Name         *string      `db:"name"`
	State        uint8        `db:"state"`
	Seed         int64        `db:"seed"`
	Round        int          `db:"round"`
	Error        *string      `db:"error"`
	StartTime    sql.NullTime `db:"start_time"`
	FinishTime   sql.NullTime `db:"finish_time"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r *runRepo) Create(ctx context.Context, run experiment.Run) (experiment.Run, error) {
	query := `INSERT INTO runs (id, experiment_id, name, state, seed, round, error, start_time, finish_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.ExperimentID, nullString(run.Name), uint8(run.State),
		run.Seed, run.Round, nullString(run.Error),
		nullTime(run.StartTime), nullTime(run.FinishTime),
		run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return experiment.Run{}, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return run, nil
}

func (r *runRepo) Get(ctx context.Context, id string) (experiment.Run, error) {
	query := `SELECT id, experiment_id, name, state, seed, round, error, start_time, finish_time, created_at, updated_at
		FROM runs WHERE id = ?`

	var dbr dbRun
	if err := r.db.GetContext(ctx, &dbr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return experiment.Run{}, ErrRunNotFound
		}

		return experiment.Run{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toRun(dbr), nil
}

func (r *runRepo) Update(ctx context.Context, run experiment.Run) error {
	query := `UPDATE runs SET
		name = ?, state = ?, seed = ?, round = ?, error = ?,
		start_time = ?, finish_time = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		nullString(run.Name), uint8(run.State), run.Seed, run.Round,
		nullString(run.Error), nullTime(run.StartTime), nullTime(run.FinishTime),
		run.UpdatedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *runRepo) List(ctx context.Context, offset, limit uint64) ([]experiment.Run, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM runs`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, experiment_id, name, state, seed, round, error, start_time, finish_time, created_at, updated_at
		FROM runs ORDER BY created_at LIMIT ? OFFSET ?`

	var dbrs []dbRun
	if err := r.db.SelectContext(ctx, &dbrs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	runs := make([]experiment.Run, len(dbrs))
	for i, dbr := range dbrs {
		runs[i] = toRun(dbr)
	}

	return runs, total, nil
}

func (r *runRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func toRun(dbr dbRun) experiment.Run {
	run := experiment.Run{
		ID:           dbr.ID,
		ExperimentID: dbr.ExperimentID,
		State:        experiment.RunState(dbr.State),
		Seed:         dbr.Seed,
		Round:        dbr.Round,
		CreatedAt:    dbr.CreatedAt,
		UpdatedAt:    dbr.UpdatedAt,
	}
	if dbr.Name != nil {
		run.Name = *dbr.Name
	}
	if dbr.Error != nil {
		run.Error = *dbr.Error
	}
	if dbr.StartTime.Valid {
		run.StartTime = dbr.StartTime.Time
	}
	if dbr.FinishTime.Valid {
		run.FinishTime = dbr.FinishTime.Time
	}

	return run
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t, Valid: true}
}
