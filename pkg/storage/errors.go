package storage

import (
	"errors"
	"fmt"

	pkgerrors "github.com/rampart-fl/rampart/pkg/errors"
)

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrMigration    = errors.New("database migration error")
	ErrCreate       = errors.New("create error")
	ErrUpdate       = errors.New("update error")
	ErrDelete       = errors.New("delete error")
	ErrInvalidID    = errors.New("invalid ID")

	ErrExperimentNotFound = fmt.Errorf("experiment: %w", pkgerrors.ErrNotFound)
	ErrRunNotFound        = fmt.Errorf("run: %w", pkgerrors.ErrNotFound)
	ErrNotFound           = pkgerrors.ErrNotFound
)
