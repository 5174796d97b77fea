// Package influxdb provides InfluxDB connectivity for the kiosk.
//
// It wraps the official influxdb-client-go v2 library with kiosk-specific
// patterns for connection management, usage metric writing, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series data storage for anonymous kiosk
// usage metrics:
//   - Flight searches and gate route requests
//   - Boarding pass scan outcomes
//   - Map session lifecycle transitions
//   - Security checkpoint wait times
//
// No personally identifying data is ever written - flight queries and
// boarding pass contents stay on the kiosk.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "terminalworks",
//	    Bucket: "kiosk_usage",
//	}
//
//	client, err := influxdb.Connect(cfg, "kiosk-a12")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a resolved flight search
//	client.WriteSearch(influxdb.SearchKindFlight, 1, 240*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency usage data.
package influxdb
