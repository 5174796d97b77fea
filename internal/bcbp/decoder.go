// Package bcbp decodes IATA Bar-Coded Boarding Pass (BCBP) data.
//
// BCBP is the fixed-width text format encoded in the 2D barcode on a
// boarding pass. This decoder handles the mandatory single-leg fields and
// makes a best-effort pass over the trailing conditional section for gate
// and boarding group. It is a pure function of its input: it never panics,
// and structural failures are reported as sentinel errors so callers can
// distinguish a short scan from a malformed one.
package bcbp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Decode errors. Any non-nil error means the scan did not produce a usable
// pass; the distinction exists so the UI can word its retry prompt.
var (
	// ErrTooShort is returned for inputs below the mandatory field length.
	ErrTooShort = errors.New("bcbp: input shorter than mandatory section")

	// ErrBadFormat is returned when the format code or leg count is invalid.
	ErrBadFormat = errors.New("bcbp: invalid format")
)

// Mandatory-section field offsets per IATA Resolution 792 (single leg).
const (
	minLength = 60

	nameStart    = 2
	nameEnd      = 22
	pnrStart     = 23
	pnrEnd       = 30
	carrierStart = 36
	carrierEnd   = 39
	flightStart  = 39
	flightEnd    = 44
	julianStart  = 44
	julianEnd    = 47
	seatStart    = 48
	seatEnd      = 52
	statusIndex  = 57

	maxLegs = 4
)

// unknownDate is the display placeholder when the Julian date cannot be parsed.
const unknownDate = "unknown date"

// Pass is a decoded boarding pass.
type Pass struct {
	PassengerName    string // "JANE SMITH" (separator normalised)
	ConfirmationCode string
	AirlineCode      string // "AA"
	FlightNumber     string // canonical, e.g. "AA1234"
	SeatNumber       string // "12A", empty if absent
	Status           byte   // raw passenger status character

	// DepartureTime is day-of-year resolved against the current year.
	// The format does not encode a year. Zero if the date failed to parse.
	DepartureTime time.Time

	// DepartureDisplay is a human-readable date, or "unknown date".
	DepartureDisplay string

	// Gate and BoardingGroup come from the conditional section and are
	// best-effort; either may be empty without invalidating the pass.
	Gate          string
	BoardingGroup string

	// Raw is the original barcode payload.
	Raw string
}

// gatePattern matches a gate-like token in the conditional section:
// one to three alphanumerics led by a letter (e.g. "B22", "A4", "C104"
// truncates to its first three characters upstream of us).
var gatePattern = regexp.MustCompile(`[A-Z][0-9]{1,2}`)

// boardingGroups maps the conditional-section group digit to the displayed
// boarding group letter.
var boardingGroups = map[byte]string{
	'1': "A", '2': "B", '3': "C", '4': "D",
	'5': "E", '6': "F", '7': "G", '8': "H", '9': "I",
}

// Decode parses a raw BCBP string into a Pass.
//
// Returns ErrTooShort for inputs under 60 characters, ErrBadFormat when the
// format marker is not 'M'/'O' or the leg count is outside 1-4. All other
// field-level oddities degrade to empty/placeholder values rather than
// failing the parse.
func Decode(raw string) (*Pass, error) {
	if len(raw) < minLength {
		return nil, ErrTooShort
	}
	if raw[0] != 'M' && raw[0] != 'O' {
		return nil, fmt.Errorf("%w: format code %q", ErrBadFormat, raw[0])
	}
	legs := int(raw[1] - '0')
	if legs < 1 || legs > maxLegs {
		return nil, fmt.Errorf("%w: leg count %q", ErrBadFormat, raw[1])
	}

	p := &Pass{
		PassengerName:    normaliseName(raw[nameStart:nameEnd]),
		ConfirmationCode: strings.TrimSpace(raw[pnrStart:pnrEnd]),
		AirlineCode:      strings.TrimSpace(raw[carrierStart:carrierEnd]),
		SeatNumber:       normaliseSeat(raw[seatStart:seatEnd]),
		Status:           raw[statusIndex],
		Raw:              raw,
	}

	p.FlightNumber = p.AirlineCode + normaliseFlightDigits(raw[flightStart:flightEnd])
	p.DepartureTime, p.DepartureDisplay = resolveJulian(raw[julianStart:julianEnd])

	if len(raw) > minLength {
		p.Gate, p.BoardingGroup = scanConditional(raw[minLength:])
	}

	return p, nil
}

// normaliseName replaces the BCBP surname/given separator with a space and
// trims field padding.
func normaliseName(field string) string {
	name := strings.ReplaceAll(strings.TrimSpace(field), "/", " ")
	return strings.Join(strings.Fields(name), " ")
}

// normaliseFlightDigits strips padding and leading zeros from the 5-char
// flight number field. An all-zero field yields "0".
func normaliseFlightDigits(field string) string {
	digits := strings.TrimSpace(field)
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" && digits != "" {
		return "0"
	}
	return trimmed
}

// normaliseSeat strips padding and leading zeros ("012A" reads as "12A").
func normaliseSeat(field string) string {
	seat := strings.TrimSpace(field)
	if len(seat) > 1 {
		seat = strings.TrimLeft(seat[:len(seat)-1], "0") + seat[len(seat)-1:]
	}
	if seat == "000" || seat == "0" {
		return ""
	}
	return seat
}

// resolveJulian converts the 3-digit day-of-year field to a date in the
// current year. The format carries no year, so passes scanned around new
// year may resolve to the wrong one; that is inherent to BCBP.
func resolveJulian(field string) (time.Time, string) {
	day, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil || day < 1 || day > 366 {
		return time.Time{}, unknownDate
	}
	t := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day-1)
	return t, t.Format("Jan 2")
}

// scanConditional extracts gate and boarding group from the conditional
// data section. The section layout varies by airline, so this is a
// permissive scan rather than offset slicing.
func scanConditional(cond string) (gate, group string) {
	upper := strings.ToUpper(cond)

	gateStart, gateEnd := -1, -1
	if loc := gatePattern.FindStringIndex(upper); loc != nil {
		gate = upper[loc[0]:loc[1]]
		gateStart, gateEnd = loc[0], loc[1]
	}

	// First group digit outside the gate token wins.
	for i := 0; i < len(upper); i++ {
		if i >= gateStart && i < gateEnd {
			continue
		}
		if g, ok := boardingGroups[upper[i]]; ok {
			group = g
			break
		}
	}
	return gate, group
}
