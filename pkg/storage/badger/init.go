// Package badger is the embedded key-value backend for the experiment and
// run registries. Every entity is one JSON value under a typed key prefix,
// so listings are prefix scans in key order.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rampart-fl/rampart/experiment"
	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
)

var (
	ErrDBConnection = errors.New("badger database connection error")
	ErrDBQuery      = errors.New("database query error")
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
	db *badger.DB
}

func NewDatabase(path string) (*Database, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBConnection, err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// put stores v as one JSON value under key, overwriting any previous value.
func (d *Database) put(key []byte, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	err = d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return nil
}

// fetch loads the JSON value under key into out.
func (d *Database) fetch(key []byte, out interface{}) error {
	var raw []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)

		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return json.Unmarshal(raw, out)
}

func (d *Database) remove(key []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

// scanPrefix walks every key under prefix in lexicographic order, invoking
// each with the values inside the [offset, offset+limit) window, and returns
// the total number of keys under the prefix.
func (d *Database) scanPrefix(prefix []byte, offset, limit uint64, each func(val []byte) error) (uint64, error) {
	var total uint64
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		if limit > 0 {
			opts.PrefetchSize = int(limit)
		}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			pos := total
			total++
			if pos < offset || pos >= offset+limit {
				continue
			}

			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := each(val); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return total, nil
}
