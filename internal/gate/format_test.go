package gate

import "testing"

func TestWalkingSeconds(t *testing.T) {
	tests := []struct {
		metres     float64
		accessible bool
		want       int
	}{
		{140, false, 100},
		{90, true, 100},
		{1.4, false, 1},
		{1.5, false, 2}, // always rounds up
		{0, false, 0},
		{-5, true, 0},
	}
	for _, tt := range tests {
		if got := WalkingSeconds(tt.metres, tt.accessible); got != tt.want {
			t.Errorf("WalkingSeconds(%v, %v) = %d, want %d",
				tt.metres, tt.accessible, got, tt.want)
		}
	}
}

func TestFormatWalkingTime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0 min"},
		{30, "1 min"},
		{60, "1 min"},
		{61, "2 min"},
		{100, "2 min"},
		{600, "10 min"},
	}
	for _, tt := range tests {
		if got := FormatWalkingTime(tt.seconds); got != tt.want {
			t.Errorf("FormatWalkingTime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		metres float64
		want   string
	}{
		{0, "0 ft"},
		{10, "33 ft"},
		{100, "328 ft"},
		{140, "459 ft"},
		{200, "0.1 mi"},   // 656 ft crosses the threshold
		{1609.34, "1.0 mi"},
		{804.67, "0.5 mi"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.metres); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.metres, got, tt.want)
		}
	}
}
