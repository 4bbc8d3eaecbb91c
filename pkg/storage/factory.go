package storage

import (
	"fmt"
	"io"

	"github.com/rampart-fl/rampart/pkg/storage/badger"
	"github.com/rampart-fl/rampart/pkg/storage/sqlite"
)

type Config struct {
	Type string `env:"COORDINATOR_STORAGE_TYPE" envDefault:"memory"`

	SQLitePath string `env:"COORDINATOR_SQLITE_PATH" envDefault:"./rampart.db"`

	BadgerPath string `env:"COORDINATOR_BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Experiments ExperimentRepository
	Runs        RunRepository
	Metrics     MetricsRepository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "sqlite":
		return newSQLiteRepositories(cfg)
	case "badger":
		return newBadgerRepositories(cfg)
	case "memory":
		return newMemoryRepositories()
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newSQLiteRepositories(cfg Config) (*Repositories, error) {
	db, err := sqlite.NewDatabase(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	repos := sqlite.NewRepositories(db)

	return &Repositories{
		Experiments: repos.Experiments,
		Runs:        repos.Runs,
		Metrics:     repos.Metrics,
		Closer:      db,
	}, nil
}

func newBadgerRepositories(cfg Config) (*Repositories, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}

	repos := badger.NewRepositories(db)

	return &Repositories{
		Experiments: repos.Experiments,
		Runs:        repos.Runs,
		Metrics:     repos.Metrics,
		Closer:      db,
	}, nil
}

func newMemoryRepositories() (*Repositories, error) {
	return &Repositories{
		Experiments: newMemoryExperimentRepository(NewInMemoryStorage()),
		Runs:        newMemoryRunRepository(NewInMemoryStorage()),
		Metrics:     newMemoryMetricsRepository(NewInMemoryStorage()),
	}, nil
}
