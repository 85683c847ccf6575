package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrLockTimeout is returned when the ledger lock could not be acquired in time
	ErrLockTimeout = errors.New("timed out waiting for ledger lock")

	// ErrCorrupt is returned when a persisted file cannot be decoded and must not be overwritten
	ErrCorrupt = errors.New("persisted data is corrupt")
)
