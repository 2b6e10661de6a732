package ledger

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("ledger: not found")

	// ErrInvalidRecord is returned when a record lacks its target or outcome.
	ErrInvalidRecord = errors.New("ledger: invalid record")
)
