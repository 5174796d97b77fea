package gate

import (
	"fmt"
	"math"
)

// Walking speeds for time estimates. The accessible figure reflects
// mobility-device and assisted travel through crowded concourses.
const (
	walkingSpeedMetresPerSec           = 1.4
	accessibleWalkingSpeedMetresPerSec = 0.9
)

// Display unit conversions.
const (
	feetPerMetre = 3.28084
	feetPerMile  = 5280.0

	// mileThresholdFeet is where the display switches from feet to miles.
	// Below this a foot count reads naturally; above it nobody counts feet.
	mileThresholdFeet = 500.0
)

// WalkingSeconds estimates walking time for a distance, rounded up so the
// display never promises a faster walk than reality.
func WalkingSeconds(distanceMetres float64, accessible bool) int {
	if distanceMetres <= 0 {
		return 0
	}
	speed := walkingSpeedMetresPerSec
	if accessible {
		speed = accessibleWalkingSpeedMetresPerSec
	}
	return int(math.Ceil(distanceMetres / speed))
}

// FormatWalkingTime renders a second count for the departure board style
// display. Sub-minute walks round up to "1 min".
func FormatWalkingTime(seconds int) string {
	if seconds <= 0 {
		return "0 min"
	}
	minutes := (seconds + 59) / 60
	return fmt.Sprintf("%d min", minutes)
}

// FormatDistance renders metres as feet, switching to miles once a foot
// count stops being meaningful.
func FormatDistance(metres float64) string {
	if metres <= 0 {
		return "0 ft"
	}
	feet := metres * feetPerMetre
	if feet < mileThresholdFeet {
		return fmt.Sprintf("%d ft", int(math.Round(feet)))
	}
	miles := feet / feetPerMile
	return fmt.Sprintf("%.1f mi", miles)
}
