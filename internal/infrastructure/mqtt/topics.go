package mqtt

import "fmt"

// Topic prefix for all kiosk traffic.
//
// Every kiosk publishes under its own subtree: kiosk/{kiosk_id}/...
// Fleet-wide consumers (operations dashboards, the waits aggregator)
// subscribe with a + wildcard in the kiosk slot.
const TopicPrefix = "kiosk"

// Topics provides builders for kiosk MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.Status("kiosk-a12")
//	// Returns: "kiosk/kiosk-a12/status"
type Topics struct{}

// Status returns the online/offline status topic for a kiosk.
// Messages on this topic are retained so new subscribers see the
// last known state. The LWT publishes here on unexpected disconnect.
//
// Example: kiosk/kiosk-a12/status
func (Topics) Status(kioskID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, kioskID)
}

// Waits returns the security wait time topic for a kiosk.
// The kiosk republishes checkpoint wait times here after each refresh
// so signage and other kiosks can share one upstream fetch.
//
// Example: kiosk/kiosk-a12/waits
func (Topics) Waits(kioskID string) string {
	return fmt.Sprintf("%s/%s/waits", TopicPrefix, kioskID)
}

// Event returns the topic for a usage event from a kiosk.
//
// Example: kiosk/kiosk-a12/event/flight_search
func (Topics) Event(kioskID, eventType string) string {
	return fmt.Sprintf("%s/%s/event/%s", TopicPrefix, kioskID, eventType)
}

// Command returns the topic for a remote command to a kiosk.
//
// Example: kiosk/kiosk-a12/command/restore
func (Topics) Command(kioskID, command string) string {
	return fmt.Sprintf("%s/%s/command/%s", TopicPrefix, kioskID, command)
}

// Session returns the map session status topic for a kiosk.
// Session lifecycle transitions are published here retained.
//
// Example: kiosk/kiosk-a12/session
func (Topics) Session(kioskID string) string {
	return fmt.Sprintf("%s/%s/session", TopicPrefix, kioskID)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllCommands returns a pattern matching all commands sent to one kiosk.
// The kiosk subscribes to this at startup.
//
// Pattern: kiosk/kiosk-a12/command/#
func (Topics) AllCommands(kioskID string) string {
	return fmt.Sprintf("%s/%s/command/#", TopicPrefix, kioskID)
}

// AllStatuses returns a pattern matching status updates from every kiosk.
//
// Pattern: kiosk/+/status
func (Topics) AllStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefix)
}

// AllWaits returns a pattern matching wait time updates from every kiosk.
//
// Pattern: kiosk/+/waits
func (Topics) AllWaits() string {
	return fmt.Sprintf("%s/+/waits", TopicPrefix)
}

// AllEvents returns a pattern matching usage events from every kiosk.
//
// Pattern: kiosk/+/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+/event/+", TopicPrefix)
}

// AllTopics returns a pattern matching all kiosk traffic.
// Use with caution - this receives ALL traffic from the whole fleet.
//
// Pattern: kiosk/#
func (Topics) AllTopics() string {
	return "kiosk/#"
}
