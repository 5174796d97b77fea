package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terminalworks/kiosk-core/internal/gate"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/influxdb"
	"github.com/terminalworks/kiosk-core/internal/poi"
)

// handleListGates returns every gate in the venue in concourse/number order.
func (s *Server) handleListGates(w http.ResponseWriter, _ *http.Request) {
	gates, err := s.gates.AllGates()
	if err != nil {
		if errors.Is(err, poi.ErrNotInitialised) {
			writeUnavailable(w, "directory not loaded yet")
			return
		}
		s.logger.Error("gate listing failed", "error", err)
		writeInternalError(w, "gate listing failed")
		return
	}
	if gates == nil {
		gates = []poi.POI{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gates": gates,
	})
}

// handleResolveGate resolves a flight number or gate name to a gate POI.
// The path segment takes whatever the traveller typed: "ba 172", "A12".
// Input that parses as a flight number goes through the flight lookup;
// everything else is treated as a gate name.
func (s *Server) handleResolveGate(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "gate")

	var (
		g   *poi.POI
		err error
	)
	kind := influxdb.SearchKindGate
	start := time.Now()
	if _, ok := gate.ParseFlightNumber(input); ok {
		kind = influxdb.SearchKindFlight
		g, err = s.gates.FindGateByFlight(r.Context(), input)
	} else {
		g, err = s.gates.FindGate(r.Context(), input)
	}
	duration := time.Since(start)

	if err != nil {
		if s.metrics != nil {
			s.metrics.WriteSearch(kind, 0, duration)
		}
		switch {
		case errors.Is(err, gate.ErrBadFlightNumber):
			writeBadRequest(w, "not a flight number or gate name: "+input)
		case errors.Is(err, gate.ErrGateNotFound):
			writeNotFound(w, "no gate found for "+input)
		default:
			s.logger.Error("gate resolution failed", "input", input, "error", err)
			writeInternalError(w, "gate resolution failed")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.WriteSearch(kind, 1, duration)
	}

	writeJSON(w, http.StatusOK, g)
}

// handleGateRoute computes the walking route from the kiosk to a gate.
// ?accessible=true requests the step-free path.
func (s *Server) handleGateRoute(w http.ResponseWriter, r *http.Request) {
	gateID := chi.URLParam(r, "gate")
	accessible := r.URL.Query().Get("accessible") == "true"

	route, err := s.gates.RouteToGate(r.Context(), gateID, accessible)
	if err != nil {
		if errors.Is(err, gate.ErrGateNotFound) {
			writeNotFound(w, "no route to gate "+gateID)
			return
		}
		writeUnavailable(w, "routing unavailable")
		return
	}

	if s.metrics != nil {
		s.metrics.WriteGateRoute(route.Path.DistanceMetres, float64(route.WalkingSeconds), accessible)
	}

	writeJSON(w, http.StatusOK, route)
}

// handleGateNavigate draws the route to a gate on the kiosk's map display
// instead of returning it. Fire-and-forget from the UI's point of view.
func (s *Server) handleGateNavigate(w http.ResponseWriter, r *http.Request) {
	gateID := chi.URLParam(r, "gate")
	accessible := r.URL.Query().Get("accessible") == "true"

	if err := s.gates.ShowNavigationToGate(r.Context(), gateID, accessible); err != nil {
		writeUnavailable(w, "navigation unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"gate_id":    gateID,
		"accessible": accessible,
		"shown":      true,
	})
}

// handleParseFlight normalises flight number input without resolving it.
// The UI uses this to validate as the traveller types.
func (s *Server) handleParseFlight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	normalised, ok := gate.ParseFlightNumber(req.Input)
	writeJSON(w, http.StatusOK, map[string]any{
		"flight_number": normalised,
		"valid":         ok,
	})
}
