package mapsession

import "errors"

// Session manager errors.
var (
	// ErrNoSession indicates an operation needed a live map instance and
	// none exists. Waiters also receive this when the session they were
	// waiting for is destroyed before it settles.
	ErrNoSession = errors.New("mapsession: no live session")

	// ErrClosed is returned once the manager has been shut down. A closed
	// manager never produces another session.
	ErrClosed = errors.New("mapsession: manager closed")
)
