package poi

import "errors"

// Cache errors.
var (
	// ErrNotFound indicates no POI with the requested id exists in the
	// cache or upstream.
	ErrNotFound = errors.New("poi: not found")

	// ErrNotInitialised indicates a read hit the cache before Initialise
	// succeeded at least once.
	ErrNotInitialised = errors.New("poi: cache not initialised")

	// ErrNoSnapshot indicates no persisted snapshot exists to fall back on.
	ErrNoSnapshot = errors.New("poi: no snapshot")
)
