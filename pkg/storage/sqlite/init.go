// Package sqlite is the relational backend for the experiment and run
// registries and the per-round metrics log. It is embedded, file-backed and
// migrated on open.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rampart-fl/rampart/experiment"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrCreate       = errors.New("create error")
	ErrUpdate       = errors.New("update error")
	ErrDelete       = errors.New("delete error")

	// Not-found errors wrap the shared sentinel so the HTTP layer can map
	// them without importing every backend.
	ErrExperimentNotFound = fmt.Errorf("experiment: %w", pkgerrors.ErrNotFound)
	ErrRunNotFound        = fmt.Errorf("run: %w", pkgerrors.ErrNotFound)
	ErrNotFound           = pkgerrors.ErrNotFound
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

type MetricsRepository interface {
	CreateRoundMetrics(ctx context.Context, rec experiment.RoundRecord) error
	ListRoundMetrics(ctx context.Context, runID string, offset, limit uint64) ([]experiment.RoundRecord, uint64, error)
}

type Repositories struct {
	Experiments ExperimentRepository
	Runs        RunRepository
	Metrics     MetricsRepository
}

func NewRepositories(db *Database) *Repositories {
	return &Repositories{
		Experiments: NewExperimentRepository(db),
		Runs:        NewRunRepository(db),
		Metrics:     NewMetricsRepository(db),
	}
}

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "1_create_tables",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS experiments (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						dataset TEXT NOT NULL,
						pool_size INTEGER NOT NULL,
						num_rounds INTEGER NOT NULL,
						warmup_rounds INTEGER NOT NULL DEFAULT 0,
						epochs INTEGER NOT NULL DEFAULT 1,
						batch_size INTEGER NOT NULL DEFAULT 32,
						sampling REAL NOT NULL DEFAULT 1,
						seed INTEGER NOT NULL DEFAULT 0,
						strategy TEXT NOT NULL,
						attack TEXT NOT NULL,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_experiments_created_at ON experiments(created_at)`,
					`CREATE TABLE IF NOT EXISTS runs (
						id TEXT PRIMARY KEY,
						experiment_id TEXT NOT NULL,
						name TEXT,
						state INTEGER NOT NULL DEFAULT 0,
						seed INTEGER NOT NULL DEFAULT 0,
						round INTEGER NOT NULL DEFAULT 0,
						error TEXT,
						start_time TIMESTAMP,
						finish_time TIMESTAMP,
						created_at TIMESTAMP NOT NULL,
						updated_at TIMESTAMP NOT NULL,
						FOREIGN KEY (experiment_id) REFERENCES experiments(id) ON DELETE CASCADE
					)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_experiment_id ON runs(experiment_id)`,
					`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
					`CREATE TABLE IF NOT EXISTS round_metrics (
						run_id TEXT NOT NULL,
						round INTEGER NOT NULL,
						loss REAL NOT NULL,
						accuracy REAL NOT NULL,
						auc REAL NOT NULL,
						tp INTEGER NOT NULL,
						tn INTEGER NOT NULL,
						fp INTEGER NOT NULL,
						fn INTEGER NOT NULL,
						kept_indices TEXT,
						malicious_ids TEXT,
						created_at TIMESTAMP NOT NULL,
						PRIMARY KEY (run_id, round),
						FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
					)`,
				},
				Down: []string{
					`DROP TABLE IF EXISTS round_metrics`,
					`DROP INDEX IF EXISTS idx_runs_state`,
					`DROP INDEX IF EXISTS idx_runs_experiment_id`,
					`DROP TABLE IF EXISTS runs`,
					`DROP INDEX IF EXISTS idx_experiments_created_at`,
					`DROP TABLE IF EXISTS experiments`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("database migration error: %w", err)
	}

	return nil
}
