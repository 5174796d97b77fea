package api

import (
	"net/http"
)

// handleCacheClear drops the POI directory cache. The next directory
// request repopulates it from the engine. Admin-only; the public API
// never invalidates the cache.
func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.directory.Clear()
	s.logger.Info("directory cache cleared by admin")

	writeJSON(w, http.StatusOK, map[string]any{
		"cleared": true,
	})
}

// handleSessionReinit tears down the live map session and starts a fresh
// one. The recovery path for a wedged engine that stops responding but
// hasn't crashed.
func (s *Server) handleSessionReinit(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("map session reinit requested by admin")

	s.sessions.DestroySession()
	if _, err := s.sessions.InitSession(r.Context()); err != nil {
		s.logger.Error("session reinit failed", "error", err)
		writeUnavailable(w, "session reinit failed")
		return
	}

	stats := s.sessions.Stats()
	if s.metrics != nil {
		s.metrics.WriteSessionRestarts(stats.InitCount)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reinitialised": true,
		"session":       stats,
	})
}
