package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes. The kiosk UI runs on the same machine, so most of the
	// surface is unauthenticated; only the admin group needs a token.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		// Venue directory
		r.Get("/directory/{tab}", s.handleDirectoryTab)
		r.Route("/pois", func(r chi.Router) {
			r.Get("/", s.handleListPOIs)
			r.Get("/{id}", s.handleGetPOI)
		})
		r.Get("/search", s.handleSearch)

		// Security checkpoints
		r.Route("/security/waits", func(r chi.Router) {
			r.Get("/", s.handleSecurityWaits)
			r.Post("/refresh", s.handleRefreshWaits)
		})

		// Gates and flights
		r.Route("/gates", func(r chi.Router) {
			r.Get("/", s.handleListGates)
			r.Get("/{gate}", s.handleResolveGate)
			r.Get("/{gate}/route", s.handleGateRoute)
			r.Post("/{gate}/navigate", s.handleGateNavigate)
		})
		r.Post("/flights/parse", s.handleParseFlight)
		r.Post("/boarding-pass/decode", s.handleDecodeBoardingPass)

		// Map session commands
		r.Post("/session/restore", s.handleSessionRestore)
		r.Post("/session/search", s.handleSessionSearch)

		// Auth
		r.Post("/auth/login", s.handleLogin)

		// Admin (JWT bearer)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/cache/clear", s.handleCacheClear)
			r.Post("/session/reinit", s.handleSessionReinit)
		})

		// WebSocket event stream for the UI
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
