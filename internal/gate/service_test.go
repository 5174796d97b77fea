package gate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// fakeMaps implements MapService with canned search results per query.
type fakeMaps struct {
	mu       sync.Mutex
	results  map[string][]poi.POI
	queries  []string
	route    *poi.Route
	routeErr error
	shown    []string
}

func (f *fakeMaps) SearchPOIs(_ context.Context, query string) ([]poi.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results[query], nil
}

func (f *fakeMaps) Directions(_ context.Context, _ string, _ bool) (*poi.Route, error) {
	return f.route, f.routeErr
}

func (f *fakeMaps) ShowDirections(_ context.Context, toPOIID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, toPOIID)
	return nil
}

// fakeSchedule implements FlightScheduleProvider.
type fakeSchedule struct {
	gate string
	err  error
}

func (f *fakeSchedule) GateForFlight(context.Context, string) (string, error) {
	return f.gate, f.err
}

// fakeDirectory implements Directory.
type fakeDirectory struct {
	pois []poi.POI
	err  error
}

func (f *fakeDirectory) All() ([]poi.POI, error) { return f.pois, f.err }

func gatePOI(id, name string) poi.POI {
	return poi.POI{ID: id, Name: name, Category: "gate", IsNavigable: true}
}

func TestFindGateByFlight_SearchVariantWins(t *testing.T) {
	maps := &fakeMaps{results: map[string][]poi.POI{
		// Only the spaced spelling hits; other variants return noise or
		// nothing.
		"AA 123": {gatePOI("g-b22", "Gate B22")},
		"123":    {{ID: "shop-123", Name: "Store 123", Category: "retail.misc"}},
	}}
	s := NewService(maps, &fakeDirectory{}, nil)

	g, err := s.FindGateByFlight(context.Background(), "AA123")
	if err != nil {
		t.Fatalf("FindGateByFlight() error = %v", err)
	}
	if g.ID != "g-b22" {
		t.Errorf("gate ID = %q, want %q", g.ID, "g-b22")
	}
}

func TestFindGateByFlight_ScheduleFallback(t *testing.T) {
	maps := &fakeMaps{results: map[string][]poi.POI{
		"Gate B22": {gatePOI("g-b22", "Gate B22")},
	}}
	s := NewService(maps, &fakeDirectory{}, &fakeSchedule{gate: "B22"})

	g, err := s.FindGateByFlight(context.Background(), "American 123")
	if err != nil {
		t.Fatalf("FindGateByFlight() error = %v", err)
	}
	if g.ID != "g-b22" {
		t.Errorf("gate ID = %q, want %q", g.ID, "g-b22")
	}
}

func TestFindGateByFlight_BadInput(t *testing.T) {
	s := NewService(&fakeMaps{}, &fakeDirectory{}, nil)
	if _, err := s.FindGateByFlight(context.Background(), "not a flight"); !errors.Is(err, ErrBadFlightNumber) {
		t.Errorf("FindGateByFlight() error = %v, want ErrBadFlightNumber", err)
	}
}

func TestFindGateByFlight_NothingFound(t *testing.T) {
	s := NewService(&fakeMaps{results: map[string][]poi.POI{}}, &fakeDirectory{}, &fakeSchedule{err: errors.New("feed down")})
	if _, err := s.FindGateByFlight(context.Background(), "AA123"); !errors.Is(err, ErrGateNotFound) {
		t.Errorf("FindGateByFlight() error = %v, want ErrGateNotFound", err)
	}
}

func TestFindGate_DirectGateNumber(t *testing.T) {
	maps := &fakeMaps{results: map[string][]poi.POI{
		"Gate B22": {gatePOI("g-b22", "Gate B22")},
		"B22":      {gatePOI("g-b22", "Gate B22")},
	}}
	s := NewService(maps, &fakeDirectory{}, nil)

	g, err := s.FindGate(context.Background(), "B22")
	if err != nil {
		t.Fatalf("FindGate() error = %v", err)
	}
	if g.ID != "g-b22" {
		t.Errorf("gate ID = %q, want %q", g.ID, "g-b22")
	}
}

func TestFindGate_NormalisesSpelling(t *testing.T) {
	// Only the stripped, uppercased variant hits.
	maps := &fakeMaps{results: map[string][]poi.POI{
		"B22": {gatePOI("g-b22", "Gate B22")},
	}}
	s := NewService(maps, &fakeDirectory{}, nil)

	g, err := s.FindGate(context.Background(), "b-2 2")
	if err != nil {
		t.Fatalf("FindGate() error = %v", err)
	}
	if g.ID != "g-b22" {
		t.Errorf("gate ID = %q, want %q", g.ID, "g-b22")
	}
}

func TestFindGate_MatchesByNameToken(t *testing.T) {
	// The engine files this gate under a non-gate category; the normalised
	// name still carries the token.
	maps := &fakeMaps{results: map[string][]poi.POI{
		"Gate A12": {{ID: "area-a12", Name: "A12 Boarding Area", Category: "boarding.area"}},
	}}
	s := NewService(maps, &fakeDirectory{}, nil)

	g, err := s.FindGate(context.Background(), "A12")
	if err != nil {
		t.Fatalf("FindGate() error = %v", err)
	}
	if g.ID != "area-a12" {
		t.Errorf("gate ID = %q, want %q", g.ID, "area-a12")
	}
}

func TestFindGate_IgnoresNonGateNoise(t *testing.T) {
	maps := &fakeMaps{results: map[string][]poi.POI{
		"B22": {{ID: "shop-b", Name: "Terminal Souvenirs", Category: "retail.gifts"}},
	}}
	s := NewService(maps, &fakeDirectory{}, nil)

	if _, err := s.FindGate(context.Background(), "B22"); !errors.Is(err, ErrGateNotFound) {
		t.Errorf("FindGate() error = %v, want ErrGateNotFound", err)
	}
}

func TestFindGate_EmptyInput(t *testing.T) {
	s := NewService(&fakeMaps{}, &fakeDirectory{}, nil)
	if _, err := s.FindGate(context.Background(), "  "); !errors.Is(err, ErrGateNotFound) {
		t.Errorf("FindGate() error = %v, want ErrGateNotFound", err)
	}
}

func TestRouteToGate(t *testing.T) {
	maps := &fakeMaps{route: &poi.Route{DestinationID: "g-b22", DistanceMetres: 140}}
	s := NewService(maps, &fakeDirectory{}, nil)

	r, err := s.RouteToGate(context.Background(), "g-b22", false)
	if err != nil {
		t.Fatalf("RouteToGate() error = %v", err)
	}
	if r.WalkingSeconds != 100 {
		t.Errorf("WalkingSeconds = %d, want 100", r.WalkingSeconds)
	}
	if r.WalkingDisplay != "2 min" {
		t.Errorf("WalkingDisplay = %q, want %q", r.WalkingDisplay, "2 min")
	}
	if r.DistanceDisplay != "459 ft" {
		t.Errorf("DistanceDisplay = %q, want %q", r.DistanceDisplay, "459 ft")
	}
}

func TestRouteToGate_AccessibleSlower(t *testing.T) {
	maps := &fakeMaps{route: &poi.Route{DestinationID: "g-b22", DistanceMetres: 90}}
	s := NewService(maps, &fakeDirectory{}, nil)

	r, err := s.RouteToGate(context.Background(), "g-b22", true)
	if err != nil {
		t.Fatalf("RouteToGate() error = %v", err)
	}
	if r.WalkingSeconds != 100 {
		t.Errorf("WalkingSeconds = %d, want 100", r.WalkingSeconds)
	}
	if !r.Accessible {
		t.Error("Accessible = false, want true")
	}
}

func TestAllGates_NaturalOrder(t *testing.T) {
	dir := &fakeDirectory{pois: []poi.POI{
		gatePOI("g3", "Gate B1"),
		gatePOI("g2", "Gate A10"),
		{ID: "cafe", Name: "Coffee", Category: "eat.cafe"},
		gatePOI("g1", "Gate A2"),
		gatePOI("g4", "A7"), // bare name, gate category
	}}
	s := NewService(&fakeMaps{}, dir, nil)

	gates, err := s.AllGates()
	if err != nil {
		t.Fatalf("AllGates() error = %v", err)
	}

	want := []string{"g3", "g1", "g4", "g2"} // B1, A2, A7, A10
	if len(gates) != len(want) {
		t.Fatalf("AllGates() = %d gates, want %d", len(gates), len(want))
	}
	for i, g := range gates {
		if g.ID != want[i] {
			t.Errorf("AllGates()[%d].ID = %q, want %q", i, g.ID, want[i])
		}
	}
}

func TestIsGatePOI(t *testing.T) {
	tests := []struct {
		p    poi.POI
		want bool
	}{
		{poi.POI{Name: "Gate B22", Category: "gate"}, true},
		{poi.POI{Name: "Anything", Category: "gates.domestic"}, true},
		{poi.POI{Name: "Gate C4", Category: ""}, true}, // name-only match
		{poi.POI{Name: "B22", Category: ""}, true},
		{poi.POI{Name: "Gateway Grill", Category: "eat.grill"}, false},
		{poi.POI{Name: "Store 123", Category: "retail.misc"}, false},
	}
	for _, tt := range tests {
		if got := IsGatePOI(&tt.p); got != tt.want {
			t.Errorf("IsGatePOI(%q/%q) = %v, want %v", tt.p.Name, tt.p.Category, got, tt.want)
		}
	}
}
