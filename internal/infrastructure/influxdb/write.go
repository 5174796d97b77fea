package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Search kinds recorded against the kiosk_search measurement.
const (
	SearchKindText   = "text"
	SearchKindGate   = "gate"
	SearchKindFlight = "flight"
)

// WriteSearch records a directory, gate or flight lookup.
//
// The write is non-blocking; data is batched and sent asynchronously.
// The raw query text is deliberately not recorded, only the kind of
// lookup, how many results it produced and how long it took.
//
// Parameters:
//   - kind: One of SearchKindText, SearchKindGate, SearchKindFlight
//   - resultCount: Number of results returned (0 for a miss)
//   - duration: Wall-clock time the lookup took
func (c *Client) WriteSearch(kind string, resultCount int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_search",
		map[string]string{
			"kiosk_id": c.kioskID,
			"kind":     kind,
		},
		map[string]interface{}{
			"result_count": resultCount,
			"duration_ms":  float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteGateRoute records a computed route to a gate.
//
// Parameters:
//   - distanceMetres: Path length in metres
//   - etaSeconds: Estimated walking time in seconds
//   - accessible: Whether the accessible walking speed was used
func (c *Client) WriteGateRoute(distanceMetres, etaSeconds float64, accessible bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_route",
		map[string]string{
			"kiosk_id": c.kioskID,
		},
		map[string]interface{}{
			"distance_m": distanceMetres,
			"eta_s":      etaSeconds,
			"accessible": accessible,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBoardingPassScan records a boarding pass decode attempt.
// Pass contents never reach the time-series store, only the outcome.
func (c *Client) WriteBoardingPassScan(ok bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_scan",
		map[string]string{
			"kiosk_id": c.kioskID,
		},
		map[string]interface{}{
			"ok": ok,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionRestarts records the cumulative map session restart count.
//
// Used for tracking engine stability: a healthy kiosk holds a flat
// line, a flapping one climbs.
func (c *Client) WriteSessionRestarts(restarts int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_session",
		map[string]string{
			"kiosk_id": c.kioskID,
		},
		map[string]interface{}{
			"restarts": restarts,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSecurityWait records a refreshed checkpoint wait time.
//
// Parameters:
//   - checkpointID: POI identifier of the security checkpoint
//   - queue: Queue type (e.g. "general", "priority")
//   - waitMinutes: Reported wait in minutes
func (c *Client) WriteSecurityWait(checkpointID, queue string, waitMinutes float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"kiosk_waits",
		map[string]string{
			"kiosk_id":      c.kioskID,
			"checkpoint_id": checkpointID,
			"queue":         queue,
		},
		map[string]interface{}{
			"wait_minutes": waitMinutes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
// Unlike the helpers, the kiosk_id tag is not added automatically.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "kiosk-a12"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
