package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terminalworks/kiosk-core/internal/infrastructure/influxdb"
	"github.com/terminalworks/kiosk-core/internal/poi"
)

// handleDirectoryTab returns the POIs for one of the UI's category tabs
// (shop, dine, relax), nearest first.
func (s *Server) handleDirectoryTab(w http.ResponseWriter, r *http.Request) {
	tab := chi.URLParam(r, "tab")
	if !poi.ValidTab(tab) {
		writeBadRequest(w, "unknown directory tab: "+tab)
		return
	}

	pois, err := s.directory.ByTab(poi.Tab(tab))
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tab":  tab,
		"pois": pois,
	})
}

// handleListPOIs returns the full directory. Optional filters:
// ?navigable=true and ?after_security=true|false.
func (s *Server) handleListPOIs(w http.ResponseWriter, r *http.Request) {
	var (
		pois []poi.POI
		err  error
	)

	switch {
	case r.URL.Query().Get("navigable") == "true":
		pois, err = s.directory.Navigable()
	case r.URL.Query().Has("after_security"):
		pois, err = s.directory.BySecurityStatus(r.URL.Query().Get("after_security") == "true")
	default:
		pois, err = s.directory.All()
	}
	if err != nil {
		s.writeDirectoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pois": pois,
	})
}

// handleGetPOI returns one POI by id. Cache misses fall through to the
// engine, so this can return POIs outside the cached directory.
func (s *Server) handleGetPOI(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.directory.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, poi.ErrNotFound) {
			writeNotFound(w, "no POI with id "+id)
			return
		}
		s.writeDirectoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleSearch runs the engine's fuzzy text search. A blank query returns
// an empty result set rather than an error.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"query": "",
			"pois":  []poi.POI{},
		})
		return
	}

	start := time.Now()
	pois, err := s.sessions.SearchPOIs(r.Context(), query)
	if err != nil {
		writeUnavailable(w, "map session unavailable")
		return
	}
	if pois == nil {
		pois = []poi.POI{}
	}

	if s.metrics != nil {
		s.metrics.WriteSearch(influxdb.SearchKindText, len(pois), time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"pois":  pois,
	})
}

// writeDirectoryError maps cache errors to HTTP responses. An
// uninitialised cache means the engine has not delivered a directory yet,
// which is a service-level outage, not a client error.
func (s *Server) writeDirectoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, poi.ErrNotInitialised) {
		writeUnavailable(w, "directory not loaded yet")
		return
	}
	s.logger.Error("directory request failed", "error", err)
	writeInternalError(w, "directory request failed")
}
