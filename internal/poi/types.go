package poi

import "time"

// Position is a point inside the venue. FloorID is the engine's floor
// identifier, not an ordinal; comparisons are string equality only.
type Position struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	FloorID       string  `json:"floor_id"`
	StructureName string  `json:"structure_name,omitempty"`
	BuildingID    string  `json:"building_id,omitempty"`
}

// POI is a point of interest in the venue directory: a shop, restaurant,
// gate, security checkpoint, lounge, or similar amenity.
type POI struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"` // dot-hierarchical, e.g. "eat.cafe"
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	Hours       string   `json:"operation_hours,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Landmark    string   `json:"nearby_landmark,omitempty"`
	Position    Position `json:"position"`

	IsNavigable     bool `json:"is_navigable"`
	IsAfterSecurity bool `json:"is_after_security"`

	// Security carries live queue data for checkpoint POIs; nil otherwise.
	Security *SecurityWait `json:"security,omitempty"`

	// DistanceFromKiosk is computed once at cache population time against
	// the fixed kiosk reference point. Zero until the cache assigns it.
	DistanceFromKiosk float64 `json:"distance_from_kiosk_m"`
}

// SecurityWait is the live queue sub-record attached to security
// checkpoint POIs. It refreshes independently of the static cache.
type SecurityWait struct {
	QueueType   string    `json:"queue_type,omitempty"`
	WaitMinutes int       `json:"wait_minutes"`
	IsClosed    bool      `json:"is_closed"`
	IsRealTime  bool      `json:"is_real_time"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SecurityWaitTime is the flattened display record served to the UI for a
// single checkpoint.
type SecurityWaitTime struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	QueueType   string    `json:"queue_type"`
	WaitMinutes int       `json:"wait_minutes"`
	IsClosed    bool      `json:"is_closed"`
	IsRealTime  bool      `json:"is_real_time"`
	UpdatedAt   time.Time `json:"updated_at"`
	Location    string    `json:"location,omitempty"` // landmark or structure name
}

// Route is a computed path from the kiosk to a destination POI.
type Route struct {
	DestinationID  string      `json:"destination_id"`
	DistanceMetres float64     `json:"distance_m"`
	ETASeconds     int         `json:"eta_s"`
	Steps          []RouteStep `json:"steps,omitempty"`
}

// RouteStep is one instruction in a route.
type RouteStep struct {
	Instruction    string  `json:"instruction"`
	DistanceMetres float64 `json:"distance_m"`
	FloorID        string  `json:"floor_id,omitempty"`
}

// Clone returns a deep copy. Cached POIs are cloned on the way out so
// callers can never mutate cache state.
func (p *POI) Clone() *POI {
	out := *p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Security != nil {
		sec := *p.Security
		out.Security = &sec
	}
	return &out
}
