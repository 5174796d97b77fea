package api

import (
	"encoding/json"
	"net/http"
)

// handleSessionRestore returns the map to its configured idle state:
// default floor, default camera, no active route. The UI calls this from
// its inactivity timer.
func (s *Server) handleSessionRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.RestoreToConfiguredState(r.Context()); err != nil {
		writeUnavailable(w, "map session unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"restored": true,
	})
}

// handleSessionSearch runs a flight search on the map display itself,
// highlighting matching gates. This drives the shared screen rather than
// returning results; use /search for data.
func (s *Server) handleSessionSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		// ShowUI opens the engine's search panel first. Omitted means true;
		// the UI only suppresses the panel when it renders results itself.
		ShowUI *bool `json:"show_ui"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Query == "" {
		writeBadRequest(w, "query is required")
		return
	}

	showUI := req.ShowUI == nil || *req.ShowUI
	if err := s.sessions.RunFlightSearch(r.Context(), req.Query, showUI); err != nil {
		writeUnavailable(w, "map session unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":     req.Query,
		"submitted": true,
	})
}
