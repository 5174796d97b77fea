package bcbp

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// buildPass assembles a 60-character mandatory section. Field arguments must
// already be padded to their fixed widths.
func buildPass(format, legs, name, pnr, carrier, flight, julian, seat, status string) string {
	return format + legs +
		name + // 20
		"E" +
		pnr + // 7
		"PHX" + "JFK" +
		carrier + // 3
		flight + // 5
		julian + // 3
		"Y" +
		seat + // 4
		"0001 " +
		status +
		"00"
}

func validFixture() string {
	return buildPass("M", "1", "SMITH/JANE          ", "ABC123 ", "AA ", "1234 ", "045", "012A", "1")
}

func TestDecode_KnownGoodFixture(t *testing.T) {
	raw := validFixture()
	if len(raw) != 60 {
		t.Fatalf("fixture length = %d, want 60", len(raw))
	}

	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if p.PassengerName != "SMITH JANE" {
		t.Errorf("PassengerName = %q, want %q", p.PassengerName, "SMITH JANE")
	}
	if p.ConfirmationCode != "ABC123" {
		t.Errorf("ConfirmationCode = %q, want %q", p.ConfirmationCode, "ABC123")
	}
	if p.AirlineCode != "AA" {
		t.Errorf("AirlineCode = %q, want %q", p.AirlineCode, "AA")
	}
	if p.FlightNumber != "AA1234" {
		t.Errorf("FlightNumber = %q, want %q", p.FlightNumber, "AA1234")
	}
	if p.SeatNumber != "12A" {
		t.Errorf("SeatNumber = %q, want %q", p.SeatNumber, "12A")
	}

	// Day 45 of any year is 14 February.
	want := time.Date(time.Now().Year(), 2, 14, 0, 0, 0, 0, time.UTC)
	if !p.DepartureTime.Equal(want) {
		t.Errorf("DepartureTime = %v, want %v", p.DepartureTime, want)
	}
	if p.DepartureDisplay != "Feb 14" {
		t.Errorf("DepartureDisplay = %q, want %q", p.DepartureDisplay, "Feb 14")
	}
}

func TestDecode_TooShort(t *testing.T) {
	inputs := []string{"", "M", "M1SMITH/JANE", strings.Repeat("M", 59)}
	for _, in := range inputs {
		if _, err := Decode(in); !errors.Is(err, ErrTooShort) {
			t.Errorf("Decode(%q) error = %v, want ErrTooShort", in, err)
		}
	}
}

func TestDecode_BadFormatCode(t *testing.T) {
	raw := "X" + validFixture()[1:]
	if _, err := Decode(raw); !errors.Is(err, ErrBadFormat) {
		t.Errorf("Decode() error = %v, want ErrBadFormat", err)
	}
}

func TestDecode_BadLegCount(t *testing.T) {
	for _, legs := range []string{"0", "5", "X"} {
		raw := validFixture()
		raw = raw[:1] + legs + raw[2:]
		if _, err := Decode(raw); !errors.Is(err, ErrBadFormat) {
			t.Errorf("legs %q: Decode() error = %v, want ErrBadFormat", legs, err)
		}
	}
}

func TestDecode_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		strings.Repeat("\x00", 80),
		"O4" + strings.Repeat("?", 70),
		strings.Repeat(" ", 60),
	}
	for _, in := range inputs {
		// Any result is acceptable as long as it is (pass, nil) or (nil, err).
		p, err := Decode(in)
		if p == nil && err == nil {
			t.Errorf("Decode(%q) returned nil, nil", in)
		}
	}
}

func TestDecode_UnparseableJulianDate(t *testing.T) {
	raw := validFixture()
	raw = raw[:44] + "XX5" + raw[47:]

	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v; date failure must not fail the parse", err)
	}
	if !p.DepartureTime.IsZero() {
		t.Errorf("DepartureTime = %v, want zero", p.DepartureTime)
	}
	if p.DepartureDisplay != "unknown date" {
		t.Errorf("DepartureDisplay = %q, want %q", p.DepartureDisplay, "unknown date")
	}
}

func TestDecode_ConditionalGateAndGroup(t *testing.T) {
	raw := validFixture() + "B22 3"

	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if p.Gate != "B22" {
		t.Errorf("Gate = %q, want %q", p.Gate, "B22")
	}
	if p.BoardingGroup != "C" {
		t.Errorf("BoardingGroup = %q, want %q", p.BoardingGroup, "C")
	}
}

func TestDecode_ConditionalAbsent(t *testing.T) {
	p, err := Decode(validFixture())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if p.Gate != "" || p.BoardingGroup != "" {
		t.Errorf("Gate/BoardingGroup = %q/%q, want empty", p.Gate, p.BoardingGroup)
	}
}

func TestDecode_OptionalFormatMarker(t *testing.T) {
	raw := "O" + validFixture()[1:]
	if _, err := Decode(raw); err != nil {
		t.Errorf("Decode() with 'O' marker error = %v, want nil", err)
	}
}

func TestNormaliseFlightDigits(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1234 ", "1234"},
		{"0045 ", "45"},
		{"00000", "0"},
		{"7    ", "7"},
	}
	for _, tt := range tests {
		if got := normaliseFlightDigits(tt.in); got != tt.want {
			t.Errorf("normaliseFlightDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
