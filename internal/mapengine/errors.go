package mapengine

import "errors"

// Engine errors. Use errors.Is() to classify failures at the session layer.
var (
	// ErrEngineLoad indicates the vendor bootstrap failed: the descriptor
	// could not be fetched or did not expose the expected entry points.
	// Retryable on the next load attempt.
	ErrEngineLoad = errors.New("mapengine: engine load failed")

	// ErrSessionInit indicates the engine loaded but instance construction
	// failed (bad configuration, venue unknown, vendor-side error).
	ErrSessionInit = errors.New("mapengine: instance init failed")

	// ErrDestroyed is returned by operations on an instance after Destroy.
	ErrDestroyed = errors.New("mapengine: instance destroyed")

	// ErrNotFound indicates the engine has no record of the requested POI.
	ErrNotFound = errors.New("mapengine: not found")
)
