package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// ErrDimensionMismatch is returned when two parameter vectors that must
	// share a length do not. It is fatal for the round that produced it.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInsufficientClients is returned when a defense filters the client
	// pool below its required minimum. It is fatal for the whole run: a
	// defense that cannot decide is treated as failed, never as permissive.
	ErrInsufficientClients = errors.New("insufficient clients after filtering")

	ErrUnknownStrategy = errors.New("unknown aggregation strategy")
	ErrUnknownAttack   = errors.New("unknown attack function")

	ErrRunActive   = errors.New("run is already active")
	ErrRunFinished = errors.New("run already finished")
)
