package mapsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/terminalworks/kiosk-core/internal/mapengine"
	"github.com/terminalworks/kiosk-core/internal/poi"
)

// Timing for map session management.
const (
	// searchPanelSettleDelay is how long the engine's search panel is given
	// to open before a query is typed into it. Submitting earlier than this
	// silently drops the query inside the engine.
	searchPanelSettleDelay = 300 * time.Millisecond

	// teardownTimeout bounds best-effort instance destruction during
	// re-initialisation and shutdown.
	teardownTimeout = 5 * time.Second

	// notificationBufferSize is the per-subscriber channel depth. Slow
	// subscribers lose notifications rather than stall the pump.
	notificationBufferSize = 32
)

// Status describes the manager's position in the session lifecycle.
type Status string

// Session lifecycle states.
const (
	StatusUnloaded      Status = "unloaded"
	StatusLoadingEngine Status = "loading_engine"
	StatusEngineReady   Status = "engine_ready"
	StatusInitialising  Status = "initialising"
	StatusReady         Status = "ready"
	StatusDestroyed     Status = "destroyed"
)

// Logger defines the logging interface for the session manager.
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

// EngineLoader produces the map engine. The production loader wraps the
// hosted client bootstrap; tests inject fakes.
type EngineLoader func(ctx context.Context) (mapengine.Engine, error)

// Config holds the venue and kiosk identity used for every instance the
// manager creates.
type Config struct {
	// AccountID and VenueID identify the tenant and venue with the vendor.
	AccountID string
	VenueID   string

	// KioskLocation is the fixed physical position of this kiosk. It is
	// pinned on the map and used as the origin for every route.
	KioskLocation poi.Position

	// HomeStateToken, when set, is an engine view-state token captured at
	// commissioning time. RestoreToConfiguredState restores it; when empty
	// the engine's default view is used instead.
	HomeStateToken string

	// ShowControls toggles the engine's built-in UI chrome.
	ShowControls bool

	// QuickCategories are passed through to the engine's quick-action bar.
	QuickCategories []string

	// Plugins is the opaque vendor plugin block.
	Plugins map[string]any

	// SearchSettleDelay overrides searchPanelSettleDelay when non-zero.
	// Tests set this to keep RunFlightSearch fast.
	SearchSettleDelay time.Duration
}

// Manager owns the map engine and its single live instance.
type Manager struct {
	cfg        Config
	loadEngine EngineLoader
	logger     Logger

	// loadGroup collapses concurrent engine loads into one vendor call.
	loadGroup singleflight.Group

	// initMu serialises InitSession, DestroySession and Close so teardown
	// and construction never interleave.
	initMu sync.Mutex

	mu         sync.RWMutex
	status     Status
	engine     mapengine.Engine
	instance   mapengine.Instance
	pending    *pendingSession
	initSeq    uint64
	initCount  int
	lastError  string
	readySince time.Time
	closed     bool

	subMu   sync.Mutex
	subs    map[int]chan Notification
	nextSub int
}

// pendingSession is the shared settlement record for WaitForSession callers.
// done is closed exactly once, after instance/err are set.
type pendingSession struct {
	done     chan struct{}
	instance mapengine.Instance
	err      error
}

// NewManager creates a session manager. The engine is not loaded until
// LoadEngine or the first InitSession.
func NewManager(cfg Config, load EngineLoader) *Manager {
	if cfg.SearchSettleDelay == 0 {
		cfg.SearchSettleDelay = searchPanelSettleDelay
	}
	return &Manager{
		cfg:        cfg,
		loadEngine: load,
		logger:     noopLogger{},
		status:     StatusUnloaded,
		subs:       make(map[int]chan Notification),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// KioskLocation returns the fixed kiosk position.
func (m *Manager) KioskLocation() poi.Position {
	return m.cfg.KioskLocation
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LoadEngine loads the map engine if it is not already loaded. Concurrent
// calls share a single load; the result is cached for the life of the
// process, so repeat calls after success return immediately. A failed load
// leaves the manager retryable.
func (m *Manager) LoadEngine(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	if m.engine != nil {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()

	_, err, _ := m.loadGroup.Do("engine", func() (any, error) {
		// Re-check under the group: a previous winner may have stored it.
		m.mu.RLock()
		cached := m.engine
		m.mu.RUnlock()
		if cached != nil {
			return nil, nil
		}

		m.setStatus(StatusLoadingEngine)
		m.logger.Info("loading map engine")

		eng, err := m.loadEngine(ctx)
		if err != nil {
			m.mu.Lock()
			m.lastError = err.Error()
			m.status = StatusUnloaded
			m.mu.Unlock()
			m.notifyStatus(StatusUnloaded)
			return nil, fmt.Errorf("loading map engine: %w", err)
		}

		m.mu.Lock()
		m.engine = eng
		m.mu.Unlock()
		m.setStatus(StatusEngineReady)
		m.logger.Info("map engine loaded")
		return nil, nil
	})
	return err
}

// InitSession creates a new map instance, tearing down any existing one
// first. On success the instance becomes the live session and every caller
// blocked in WaitForSession receives it; on failure those waiters receive
// the error and the manager stays at engine_ready for a retry.
func (m *Manager) InitSession(ctx context.Context) (mapengine.Instance, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	if err := m.LoadEngine(ctx); err != nil {
		m.failPending(err)
		return nil, err
	}

	// Replace, never stack: the engine misbehaves with two live instances.
	m.teardown()

	m.setStatus(StatusInitialising)

	m.mu.RLock()
	eng := m.engine
	m.mu.RUnlock()

	inst, err := eng.NewInstance(ctx, m.instanceConfig())
	if err != nil {
		err = fmt.Errorf("initialising map session: %w", err)
		m.mu.Lock()
		m.lastError = err.Error()
		m.status = StatusEngineReady
		m.mu.Unlock()
		m.notifyStatus(StatusEngineReady)
		m.failPending(err)
		m.logger.Error("map session init failed", "error", err)
		return nil, err
	}

	m.mu.Lock()
	m.instance = inst
	m.initSeq++
	m.initCount++
	m.lastError = ""
	m.readySince = time.Now()
	m.status = StatusReady
	seq := m.initSeq
	p := m.pending
	m.pending = nil
	m.mu.Unlock()

	go m.pump(inst, seq)

	m.notifyStatus(StatusReady)
	if p != nil {
		p.instance = inst
		close(p.done)
	}

	m.logger.Info("map session ready", "venue_id", m.cfg.VenueID, "init_count", m.initCount)
	return inst, nil
}

// instanceConfig builds the engine configuration from the manager's own.
func (m *Manager) instanceConfig() mapengine.InstanceConfig {
	return mapengine.InstanceConfig{
		AccountID:       m.cfg.AccountID,
		VenueID:         m.cfg.VenueID,
		KioskLocation:   m.engineLocation(),
		ShowControls:    m.cfg.ShowControls,
		QuickCategories: m.cfg.QuickCategories,
		Plugins:         m.cfg.Plugins,
	}
}

func (m *Manager) engineLocation() mapengine.Location {
	return mapengine.Location{
		Latitude:  m.cfg.KioskLocation.Latitude,
		Longitude: m.cfg.KioskLocation.Longitude,
		FloorID:   m.cfg.KioskLocation.FloorID,
	}
}

// Session returns the live instance without blocking.
func (m *Manager) Session() (mapengine.Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instance, m.instance != nil
}

// WaitForSession returns the live instance, blocking until one exists.
// All concurrent callers share the settlement of the next InitSession;
// there is no polling. If that init fails every waiter receives its error.
func (m *Manager) WaitForSession(ctx context.Context) (mapengine.Instance, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if m.instance != nil {
		inst := m.instance
		m.mu.Unlock()
		return inst, nil
	}
	if m.pending == nil {
		m.pending = &pendingSession{done: make(chan struct{})}
	}
	p := m.pending
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.instance, p.err
	}
}

// failPending rejects all current waiters and clears the pending slot so
// later waiters attach to the next attempt instead of a stale failure.
func (m *Manager) failPending(err error) {
	m.mu.Lock()
	p := m.pending
	m.pending = nil
	m.mu.Unlock()
	if p != nil {
		p.err = err
		close(p.done)
	}
}

// DestroySession tears down the live instance. Teardown errors from the
// engine are logged and swallowed; the local handle is cleared regardless
// so a fresh InitSession always starts clean.
func (m *Manager) DestroySession() {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.teardown()
	m.failPending(ErrNoSession)

	m.mu.Lock()
	if !m.closed {
		if m.engine != nil {
			m.status = StatusEngineReady
		} else {
			m.status = StatusUnloaded
		}
	}
	status := m.status
	m.mu.Unlock()
	m.notifyStatus(status)
}

// teardown destroys the current instance if any. Callers hold initMu.
func (m *Manager) teardown() {
	m.mu.Lock()
	inst := m.instance
	m.instance = nil
	m.initSeq++ // orphans the old event pump
	m.mu.Unlock()

	if inst == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := inst.Destroy(ctx); err != nil {
		// The engine is known to error on teardown from inconsistent
		// states; the instance is gone either way.
		m.logger.Warn("map instance teardown reported error", "error", err)
	} else {
		m.logger.Debug("map instance destroyed")
	}
}

// Close shuts the manager down permanently. Waiters receive ErrClosed and
// all subscriber channels are closed.
func (m *Manager) Close() {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.teardown()
	m.failPending(ErrClosed)

	m.mu.Lock()
	m.status = StatusDestroyed
	m.mu.Unlock()
	m.notifyStatus(StatusDestroyed)

	m.subMu.Lock()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.subMu.Unlock()

	m.logger.Info("map session manager closed")
}

// RunFlightSearch types the query into the engine's search UI. When showUI
// is set the search panel is opened first and given the settle delay before
// the query goes in; submitting earlier drops the query inside the engine.
// With no live session this is a logged no-op: attract-loop taps race
// session recreation and must never error the UI.
func (m *Manager) RunFlightSearch(ctx context.Context, query string, showUI bool) error {
	inst, ok := m.Session()
	if !ok {
		m.logger.Warn("flight search ignored, no live session", "query", query)
		return nil
	}

	if showUI {
		if err := inst.ShowSearch(ctx); err != nil {
			return fmt.Errorf("opening search panel: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.SearchSettleDelay):
		}
	}

	if err := inst.SubmitSearch(ctx, query); err != nil {
		return fmt.Errorf("submitting search query: %w", err)
	}
	return nil
}

// RestoreToConfiguredState returns the map to the commissioned home view,
// or the engine default when no home state was captured. No-op without a
// live session.
func (m *Manager) RestoreToConfiguredState(ctx context.Context) error {
	inst, ok := m.Session()
	if !ok {
		m.logger.Warn("restore ignored, no live session")
		return nil
	}
	if m.cfg.HomeStateToken != "" {
		if err := inst.RestoreState(ctx, m.cfg.HomeStateToken); err != nil {
			return fmt.Errorf("restoring home state: %w", err)
		}
		return nil
	}
	if err := inst.ResetView(ctx); err != nil {
		return fmt.Errorf("resetting view: %w", err)
	}
	return nil
}

// FetchAllPOIs returns every POI in the venue via the live session,
// waiting for one if necessary.
func (m *Manager) FetchAllPOIs(ctx context.Context) ([]poi.POI, error) {
	inst, err := m.WaitForSession(ctx)
	if err != nil {
		return nil, err
	}
	return inst.ListPOIs(ctx)
}

// FetchPOI returns one POI by id, or nil when the venue has no such POI.
func (m *Manager) FetchPOI(ctx context.Context, id string) (*poi.POI, error) {
	inst, err := m.WaitForSession(ctx)
	if err != nil {
		return nil, err
	}
	return inst.GetPOI(ctx, id)
}

// SearchPOIs runs the engine's fuzzy search, preserving its ranking.
func (m *Manager) SearchPOIs(ctx context.Context, query string) ([]poi.POI, error) {
	inst, err := m.WaitForSession(ctx)
	if err != nil {
		return nil, err
	}
	return inst.Search(ctx, query)
}

// Directions computes a route from the kiosk to a POI.
func (m *Manager) Directions(ctx context.Context, toPOIID string, accessible bool) (*poi.Route, error) {
	inst, err := m.WaitForSession(ctx)
	if err != nil {
		return nil, err
	}
	return inst.GetDirections(ctx, m.engineLocation(), toPOIID, accessible)
}

// ShowDirections renders a route from the kiosk on the map instead of
// returning it. No-op without a live session.
func (m *Manager) ShowDirections(ctx context.Context, toPOIID string, accessible bool) error {
	inst, ok := m.Session()
	if !ok {
		m.logger.Warn("show directions ignored, no live session", "poi_id", toPOIID)
		return nil
	}
	return inst.ShowNavigation(ctx, m.engineLocation(), toPOIID, accessible)
}

// SetFloor switches the displayed floor. No-op without a live session.
func (m *Manager) SetFloor(ctx context.Context, floorID string) error {
	inst, ok := m.Session()
	if !ok {
		m.logger.Warn("floor change ignored, no live session", "floor_id", floorID)
		return nil
	}
	return inst.SetFloor(ctx, floorID)
}

// Stats holds a snapshot of the session manager's state.
type Stats struct {
	Status       Status        `json:"status"`
	EngineLoaded bool          `json:"engine_loaded"`
	SessionLive  bool          `json:"session_live"`
	InitCount    int           `json:"init_count"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the session.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Status:       m.status,
		EngineLoaded: m.engine != nil,
		SessionLive:  m.instance != nil,
		InitCount:    m.initCount,
		LastError:    m.lastError,
	}
	if m.instance != nil && !m.readySince.IsZero() {
		stats.Uptime = time.Since(m.readySince)
	}
	return stats
}

// setStatus records a state transition and notifies subscribers.
func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	m.notifyStatus(s)
}
