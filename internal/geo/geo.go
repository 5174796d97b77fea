// Package geo provides distance calculations for terminal-scale geometry.
//
// All distances in a kiosk deployment are sub-kilometre, so a flat-earth
// approximation is used instead of the Haversine formula. The error is
// roughly 0.1% under 1 km, which is well inside the tolerance for walking
// time estimates, and it avoids two trig calls per point when ranking
// hundreds of POIs against the kiosk position.
package geo

import "math"

// Metres per degree at the equator. Longitude shrinks with cos(latitude).
const (
	metresPerDegreeLat = 110540.0
	metresPerDegreeLng = 111320.0
)

// CosLat returns cos(lat) for use with PlanarDistanceMetres.
//
// Callers ranking a batch of points against a fixed origin should compute
// this once for the origin latitude rather than per point.
func CosLat(lat float64) float64 {
	return math.Cos(lat * math.Pi / 180.0)
}

// PlanarDistanceMetres returns the approximate distance in metres between
// two lat/lng points using an equirectangular projection.
//
// cosLat is cos(latitude) of the reference point, precomputed via CosLat.
func PlanarDistanceMetres(lat1, lng1, lat2, lng2, cosLat float64) float64 {
	dy := (lat2 - lat1) * metresPerDegreeLat
	dx := (lng2 - lng1) * metresPerDegreeLng * cosLat
	return math.Sqrt(dx*dx + dy*dy)
}
