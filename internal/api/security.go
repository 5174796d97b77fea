package api

import (
	"net/http"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// handleSecurityWaits returns the cached checkpoint wait times along with
// when they were last refreshed. Serves stale data rather than erroring
// when the engine is down; the UI shows the timestamp.
func (s *Server) handleSecurityWaits(w http.ResponseWriter, _ *http.Request) {
	waits, updatedAt, err := s.directory.SecurityWaitTimes()
	if err != nil {
		writeUnavailable(w, "no wait time data available yet")
		return
	}
	if waits == nil {
		waits = []poi.SecurityWaitTime{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"waits":      waits,
		"updated_at": updatedAt,
	})
}

// handleRefreshWaits forces a wait-time refresh from the engine and pushes
// the result to connected UI clients. The periodic refresher normally
// covers this; the endpoint exists for the UI's pull-to-refresh gesture.
func (s *Server) handleRefreshWaits(w http.ResponseWriter, r *http.Request) {
	waits, err := s.directory.RefreshSecurityWaitTimes(r.Context())
	if err != nil {
		s.logger.Warn("wait time refresh failed", "error", err)
		writeUnavailable(w, "wait time refresh failed")
		return
	}
	if waits == nil {
		waits = []poi.SecurityWaitTime{}
	}

	s.NotifyWaitsUpdated(waits)

	if s.metrics != nil {
		for _, wt := range waits {
			s.metrics.WriteSecurityWait(wt.ID, wt.QueueType, float64(wt.WaitMinutes))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"waits": waits,
	})
}
