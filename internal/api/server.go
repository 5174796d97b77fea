// Package api provides the HTTP REST API and WebSocket server for the kiosk.
//
// It exposes the venue directory, gate resolution, boarding pass decoding,
// and map session control to the kiosk's touch-screen UI, which runs as a
// separate process and talks to this server over localhost.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/terminalworks/kiosk-core/internal/gate"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/config"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/influxdb"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/logging"
	"github.com/terminalworks/kiosk-core/internal/mapsession"
	"github.com/terminalworks/kiosk-core/internal/poi"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Sessions  *mapsession.Manager
	Directory *poi.Cache
	Gates     *gate.Service
	Metrics   *influxdb.Client // optional; nil disables usage metrics
	Version   string
}

// Server is the HTTP API server for the kiosk.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	sessions  *mapsession.Manager
	directory *poi.Cache
	gates     *gate.Service
	metrics   *influxdb.Client
	version   string
	started   time.Time
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, session manager, cache, gates)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("poi cache is required")
	}
	if deps.Gates == nil {
		return nil, fmt.Errorf("gate service is required")
	}
	// Metrics is optional - the kiosk functions fully without InfluxDB.

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		sessions:  deps.Sessions,
		directory: deps.Directory,
		gates:     deps.Gates,
		metrics:   deps.Metrics,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, forwards map session
// notifications to WebSocket subscribers, and launches the HTTP listener
// in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	// Create WebSocket hub
	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay map session notifications to WebSocket subscribers
	go s.forwardNotifications(srvCtx)

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// forwardNotifications relays map session notifications to the WebSocket
// hub. Engine events, security wait updates, and session lifecycle changes
// all reach the UI through this single path.
func (s *Server) forwardNotifications(ctx context.Context) {
	events, unsubscribe := s.sessions.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			s.hub.Broadcast(string(n.Type), n)
		}
	}
}

// NotifyWaitsUpdated broadcasts refreshed security wait times to WebSocket
// subscribers. Called by the refresh endpoint and the background refresh
// ticker in cmd/kioskd.
func (s *Server) NotifyWaitsUpdated(waits []poi.SecurityWaitTime) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(channelWaitsUpdated, map[string]any{
		"waits": waits,
	})
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, notification relay)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
