// Package poi holds the venue directory: the POI domain model, the
// in-memory cache the kiosk serves every browse interaction from, and the
// category tab filters.
//
// The cache is populated once from the map engine and refreshed on a long
// TTL; distances from the kiosk are computed a single time at population.
// Filters never touch the engine - they operate purely on cached data, so
// tab switches stay instant regardless of vendor latency. A SQLite
// snapshot of the last good fetch backs the cache so the directory
// survives engine outages across restarts.
package poi
