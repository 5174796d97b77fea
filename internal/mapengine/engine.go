// Package mapengine defines the capability contract for the external
// indoor-mapping engine and provides the production client for the hosted
// service.
//
// The engine is a versioned third-party dependency with its own internal
// state machine; this package treats it strictly as a black box. Everything
// above it (session manager, POI cache, gate resolution) depends on the
// Engine and Instance interfaces only, so the vendor can be swapped or
// faked in tests without touching the rest of the system.
package mapengine

import (
	"context"
	"time"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// Engine constructs map instances. Load it once per process; construction
// of the engine itself performs the vendor bootstrap handshake.
type Engine interface {
	// NewInstance creates a live map instance for the configured venue.
	// Exactly one instance should be live at a time; enforcing that is the
	// session manager's job, not the engine's.
	NewInstance(ctx context.Context, cfg InstanceConfig) (Instance, error)
}

// Instance is one live map widget. Data operations are request/response
// and context-aware; command operations are fire-and-forget against the
// engine's view state.
type Instance interface {
	// ListPOIs returns every POI in the venue. This is the bulk fetch the
	// POI cache is populated from.
	ListPOIs(ctx context.Context) ([]poi.POI, error)

	// GetPOI returns a single POI by id, or nil if the engine has no
	// record of it.
	GetPOI(ctx context.Context, id string) (*poi.POI, error)

	// Search runs the engine's fuzzy text search. Relevance ranking is the
	// engine's; results come back in its order.
	Search(ctx context.Context, query string) ([]poi.POI, error)

	// GetDirections computes a route from a point to a POI. accessible
	// selects the engine's step-free routing mode.
	GetDirections(ctx context.Context, from Location, toPOIID string, accessible bool) (*poi.Route, error)

	// ShowSearch opens the engine's own search panel.
	ShowSearch(ctx context.Context) error

	// SubmitSearch types a query into the engine's search UI. Unlike
	// Search this drives the widget's own panel and returns nothing.
	SubmitSearch(ctx context.Context, query string) error

	// ShowNavigation renders a route visually instead of returning it.
	ShowNavigation(ctx context.Context, from Location, toPOIID string, accessible bool) error

	// SetFloor switches the displayed floor.
	SetFloor(ctx context.Context, floorID string) error

	// CaptureState returns an opaque token for the current view state.
	CaptureState(ctx context.Context) (string, error)

	// RestoreState restores a view captured earlier with CaptureState.
	RestoreState(ctx context.Context, token string) error

	// ResetView returns the map to its default camera and floor.
	ResetView(ctx context.Context) error

	// Events returns the instance's event stream. The channel is closed
	// when the instance is destroyed.
	Events() <-chan Event

	// Destroy tears the instance down. The engine is known to error on
	// teardown from inconsistent states; callers treat failures here as
	// advisory.
	Destroy(ctx context.Context) error
}

// Location is a venue coordinate handed to the engine.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	FloorID   string  `json:"floor_id"`
}

// InstanceConfig is the configuration record for instance construction.
type InstanceConfig struct {
	// AccountID and VenueID identify the tenant and venue with the vendor.
	AccountID string `json:"account_id"`
	VenueID   string `json:"venue_id"`

	// KioskLocation is the pinned reference location shown on the map.
	KioskLocation Location `json:"kiosk_location"`

	// Headless requests a non-rendering, data-only instance. Used by tools
	// and tests; the kiosk itself runs a rendering instance.
	Headless bool `json:"headless,omitempty"`

	// ShowControls toggles the engine's built-in UI chrome.
	ShowControls bool `json:"show_controls"`

	// QuickCategories are the localised quick-action categories shown in
	// the engine's UI.
	QuickCategories []string `json:"quick_categories,omitempty"`

	// Plugins is the optional vendor plugin block, passed through opaquely.
	Plugins map[string]any `json:"plugins,omitempty"`
}

// EventType identifies an engine event. These are the engine's own event
// names; the session manager republishes them under its own contract.
type EventType string

// Engine event types.
const (
	EventMovementStarted EventType = "movement_started"
	EventPOISelected     EventType = "poi_selected"
	EventFloorChanged    EventType = "floor_changed"
)

// Event is a single engine event.
type Event struct {
	Type    EventType `json:"type"`
	POIID   string    `json:"poi_id,omitempty"`
	FloorID string    `json:"floor_id,omitempty"`
	At      time.Time `json:"at"`
}
