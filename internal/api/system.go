package api

import (
	"net/http"
	"time"
)

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleSystem returns a status snapshot for operations tooling: the map
// session lifecycle, directory cache state, and connected UI clients.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    s.version,
		"uptime_s":   int(time.Since(s.started).Seconds()),
		"session":    s.sessions.Stats(),
		"directory":  s.directory.Stats(),
		"ws_clients": s.hub.ClientCount(),
	})
}
