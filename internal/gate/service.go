package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// gateLookupTimeout bounds the whole fan-out of a gate lookup. Engine
// search latency varies wildly; past this the traveller has given up.
const gateLookupTimeout = 10 * time.Second

// Service errors.
var (
	// ErrBadFlightNumber indicates the input could not be recognised as a
	// flight number.
	ErrBadFlightNumber = errors.New("gate: unrecognised flight number")

	// ErrGateNotFound indicates no lookup strategy produced a gate.
	ErrGateNotFound = errors.New("gate: gate not found")
)

// Logger defines the logging interface for the gate service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MapService is the slice of the session manager the gate service needs.
type MapService interface {
	SearchPOIs(ctx context.Context, query string) ([]poi.POI, error)
	Directions(ctx context.Context, toPOIID string, accessible bool) (*poi.Route, error)
	ShowDirections(ctx context.Context, toPOIID string, accessible bool) error
}

// Directory lists the cached venue directory.
type Directory interface {
	All() ([]poi.POI, error)
}

// FlightScheduleProvider resolves a flight number to a gate name through
// an airline or airport schedule feed. Optional; lookups degrade to map
// search alone without one.
type FlightScheduleProvider interface {
	// GateForFlight returns the gate name for a flight, e.g. "B22".
	GateForFlight(ctx context.Context, flightNumber string) (string, error)
}

// Service resolves flights to gates and produces routes to them.
type Service struct {
	maps      MapService
	directory Directory
	schedule  FlightScheduleProvider
	logger    Logger
}

// NewService creates a gate service. schedule may be nil.
func NewService(maps MapService, directory Directory, schedule FlightScheduleProvider) *Service {
	return &Service{
		maps:      maps,
		directory: directory,
		schedule:  schedule,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// FindGateByFlight resolves free-form flight input to a gate POI. Every
// lookup strategy runs concurrently and the first hit wins; remaining
// lookups are cancelled. The engine's search is fuzzy and its corpus
// inconsistent, which is why the same flight is tried in several spellings.
func (s *Service) FindGateByFlight(ctx context.Context, input string) (*poi.POI, error) {
	flight, ok := ParseFlightNumber(input)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadFlightNumber, input)
	}
	code, digits := flight[:2], flight[2:]

	lookups := []func(context.Context) *poi.POI{
		func(ctx context.Context) *poi.POI { return s.searchForGate(ctx, flight) },
		func(ctx context.Context) *poi.POI { return s.searchForGate(ctx, code+" "+digits) },
		func(ctx context.Context) *poi.POI { return s.searchForGate(ctx, digits) },
	}
	if s.schedule != nil {
		lookups = append(lookups, func(ctx context.Context) *poi.POI {
			return s.gateFromSchedule(ctx, flight)
		})
	}

	g, err := s.firstHit(ctx, lookups)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: flight %s", ErrGateNotFound, flight)
	}
	s.logger.Info("gate resolved", "flight", flight, "gate", g.Name)
	return g, nil
}

// FindGate resolves free-form gate input ("B22", "gate b-22") to a gate
// POI. The raw and normalised spellings are searched concurrently, with
// and without a "Gate" prefix; a result counts if it is a gate POI or if
// its normalised name contains the gate token.
func (s *Service) FindGate(ctx context.Context, input string) (*poi.POI, error) {
	raw := strings.TrimSpace(input)
	token := normaliseGateToken(raw)
	if token == "" {
		return nil, fmt.Errorf("%w: empty gate name", ErrGateNotFound)
	}

	seen := make(map[string]bool, 4)
	var lookups []func(context.Context) *poi.POI
	for _, query := range []string{"Gate " + raw, "Gate " + token, raw, token} {
		if seen[query] {
			continue
		}
		seen[query] = true
		q := query
		lookups = append(lookups, func(ctx context.Context) *poi.POI {
			return s.searchForGateNamed(ctx, q, token)
		})
	}

	g, err := s.firstHit(ctx, lookups)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: gate %s", ErrGateNotFound, token)
	}
	s.logger.Info("gate resolved", "input", input, "gate", g.Name)
	return g, nil
}

// firstHit races the lookups and returns the first non-nil result,
// cancelling the rest. A nil result with nil error means every lookup
// missed.
func (s *Service) firstHit(ctx context.Context, lookups []func(context.Context) *poi.POI) (*poi.POI, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, gateLookupTimeout)
	defer cancel()

	results := make(chan *poi.POI, len(lookups))
	for _, lookup := range lookups {
		go func(fn func(context.Context) *poi.POI) {
			results <- fn(lookupCtx)
		}(lookup)
	}

	for range lookups {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case g := <-results:
			if g != nil {
				return g, nil
			}
		}
	}
	return nil, nil
}

// searchForGate runs one engine search and returns the first result that
// is actually a gate. Errors are logged, not surfaced; a failed variant
// just loses the race.
func (s *Service) searchForGate(ctx context.Context, query string) *poi.POI {
	pois, err := s.maps.SearchPOIs(ctx, query)
	if err != nil {
		s.logger.Debug("gate search variant failed", "query", query, "error", err)
		return nil
	}
	for i := range pois {
		if IsGatePOI(&pois[i]) {
			return pois[i].Clone()
		}
	}
	return nil
}

// searchForGateNamed runs one engine search and returns the first result
// that is a gate, or whose normalised name contains the gate token. The
// engine's corpus is inconsistent about gate categorisation, so the name
// match catches gates filed under other categories.
func (s *Service) searchForGateNamed(ctx context.Context, query, token string) *poi.POI {
	pois, err := s.maps.SearchPOIs(ctx, query)
	if err != nil {
		s.logger.Debug("gate search variant failed", "query", query, "error", err)
		return nil
	}
	for i := range pois {
		if IsGatePOI(&pois[i]) || strings.Contains(normaliseGateToken(pois[i].Name), token) {
			return pois[i].Clone()
		}
	}
	return nil
}

// normaliseGateToken uppercases gate input and strips spaces and hyphens,
// so "gate b-22" and "B22" compare equal.
func normaliseGateToken(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(s)
}

// gateFromSchedule asks the schedule feed for the gate name, then finds
// the matching gate POI.
func (s *Service) gateFromSchedule(ctx context.Context, flight string) *poi.POI {
	name, err := s.schedule.GateForFlight(ctx, flight)
	if err != nil || name == "" {
		if err != nil {
			s.logger.Debug("schedule lookup failed", "flight", flight, "error", err)
		}
		return nil
	}
	return s.searchForGate(ctx, "Gate "+name)
}

// GateRoute is a resolved route to a gate with display-ready estimates.
type GateRoute struct {
	GateID          string     `json:"gate_id"`
	Path            *poi.Route `json:"path"`
	Accessible      bool       `json:"accessible"`
	WalkingSeconds  int        `json:"walking_seconds"`
	WalkingDisplay  string     `json:"walking_display"`
	DistanceDisplay string     `json:"distance_display"`
}

// RouteToGate computes the route from the kiosk to a gate, with walking
// time and distance in the units the departure display uses.
func (s *Service) RouteToGate(ctx context.Context, gateID string, accessible bool) (*GateRoute, error) {
	path, err := s.maps.Directions(ctx, gateID, accessible)
	if err != nil {
		return nil, fmt.Errorf("routing to gate %s: %w", gateID, err)
	}
	if path == nil {
		return nil, fmt.Errorf("%w: no route to %s", ErrGateNotFound, gateID)
	}

	seconds := WalkingSeconds(path.DistanceMetres, accessible)
	return &GateRoute{
		GateID:          gateID,
		Path:            path,
		Accessible:      accessible,
		WalkingSeconds:  seconds,
		WalkingDisplay:  FormatWalkingTime(seconds),
		DistanceDisplay: FormatDistance(path.DistanceMetres),
	}, nil
}

// ShowNavigationToGate renders the route on the kiosk map instead of
// returning it.
func (s *Service) ShowNavigationToGate(ctx context.Context, gateID string, accessible bool) error {
	return s.maps.ShowDirections(ctx, gateID, accessible)
}

// AllGates returns every gate in the venue, sorted by gate number with an
// alphabetical tiebreak, so Gate 2 sorts before Gate 10.
func (s *Service) AllGates() ([]poi.POI, error) {
	all, err := s.directory.All()
	if err != nil {
		return nil, fmt.Errorf("listing gates: %w", err)
	}
	var gates []poi.POI
	for i := range all {
		if IsGatePOI(&all[i]) {
			gates = append(gates, all[i])
		}
	}
	sort.Slice(gates, func(i, j int) bool {
		ni := gateNumber(gates[i].Name)
		nj := gateNumber(gates[j].Name)
		if ni != nj {
			return ni < nj
		}
		return gates[i].Name < gates[j].Name
	})
	return gates, nil
}

// gateNamePattern matches gate display names like "Gate B22" or "B22".
var gateNamePattern = regexp.MustCompile(`(?i)^(?:gate\s+)?([A-Z])\s?(\d{1,2})$`)

// IsGatePOI reports whether a POI is a departure gate. The taxonomy marks
// most gates with a gate category, but a handful are only recognisable by
// name.
func IsGatePOI(p *poi.POI) bool {
	cat := strings.ToLower(p.Category)
	if cat == "gate" || strings.HasPrefix(cat, "gate.") || strings.HasPrefix(cat, "gates.") {
		return true
	}
	return gateNamePattern.MatchString(strings.TrimSpace(p.Name))
}

// firstNumberPattern finds the gate number inside a display name.
var firstNumberPattern = regexp.MustCompile(`\d+`)

// gateNumber returns the first integer in a gate name. Names with no
// number sort after everything real.
func gateNumber(name string) int {
	m := firstNumberPattern.FindString(name)
	if m == "" {
		return 1 << 30
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 1 << 30
	}
	return n
}
