// Package gate resolves flight numbers to departure gates and routes
// travellers to them.
package gate

import (
	"regexp"
	"strings"
)

// flightPattern matches a two-letter airline designator followed by one to
// four digits, with an optional separator. Alphanumeric designators (3K,
// B6) exist but scanned passes and schedule feeds at this venue only use
// the two-letter form.
var flightPattern = regexp.MustCompile(`^([A-Z]{2})[ -]?(\d{1,4})[A-Z]?$`)

// airlineNames maps spoken airline names to IATA designators, for kiosk
// text entry like "American 123".
var airlineNames = map[string]string{
	"aeromexico": "AM",
	"alaska":     "AS",
	"american":   "AA",
	"delta":      "DL",
	"frontier":   "F9",
	"hawaiian":   "HA",
	"jetblue":    "B6",
	"lufthansa":  "LH",
	"southwest":  "WN",
	"spirit":     "NK",
	"united":     "UA",
	"westjet":    "WS",

	"air canada":      "AC",
	"british airways": "BA",
}

// ParseFlightNumber canonicalises free-form flight input to the form
// "AA123". It accepts designator forms ("AA123", "AA 123", "AA-123"),
// spoken airline names ("American 123"), and an optional "flight" prefix.
// Returns false for anything it cannot recognise as a flight number.
func ParseFlightNumber(input string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "FLIGHT ")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if m := flightPattern.FindStringSubmatch(s); m != nil {
		return m[1] + trimLeadingZeros(m[2]), true
	}

	// Spoken form: everything before the trailing digits is the airline
	// name.
	if i := strings.LastIndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 && i < len(s)-1 {
		name := strings.ToLower(strings.TrimSpace(s[:i+1]))
		digits := s[i+1:]
		if code, ok := airlineNames[name]; ok && len(digits) <= 4 {
			return code + trimLeadingZeros(digits), true
		}
	}

	return "", false
}

// trimLeadingZeros drops leading zeros but never empties the string.
func trimLeadingZeros(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
