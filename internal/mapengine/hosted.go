package mapengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// Hosted engine defaults.
const (
	// defaultRequestTimeout bounds individual data requests to the vendor.
	defaultRequestTimeout = 15 * time.Second

	// eventBufferSize is the instance event channel buffer. Events beyond
	// this are dropped; the kiosk UI only needs the latest activity signal.
	eventBufferSize = 64

	// maxResponseBody caps vendor response bodies (bulk POI lists for a
	// large terminal run to a few MB; 16MB is generous).
	maxResponseBody = 16 << 20
)

// Logger is the minimal logging interface used by the hosted client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// HostedConfig configures the connection to the vendor's hosted map API.
type HostedConfig struct {
	// BaseURL is the vendor API root, e.g. "https://maps.example.com".
	BaseURL string

	// APIKey authenticates every request.
	APIKey string

	// RequestTimeout bounds individual HTTP requests. Zero means default.
	RequestTimeout time.Duration
}

// engineDescriptor is the vendor bootstrap response. It pins the engine
// version and tells us where the instance and event endpoints live.
type engineDescriptor struct {
	EngineVersion string `json:"engine_version"`
	InstanceURL   string `json:"instance_url"`
	EventsURL     string `json:"events_url"`
}

// HostedEngine is the production Engine implementation backed by the
// vendor's hosted service. Construct it with Load, which performs the
// one-time bootstrap handshake.
//
// Thread Safety: all methods are safe for concurrent use.
type HostedEngine struct {
	cfg        HostedConfig
	httpClient *http.Client
	descriptor engineDescriptor

	logger   Logger
	loggerMu sync.RWMutex
}

// Load performs the vendor bootstrap handshake and returns a ready engine.
//
// The handshake fetches the engine descriptor (pinned version, endpoint
// URLs) exactly once. Callers wanting process-wide once semantics go
// through the session manager, which deduplicates concurrent loads.
//
// Returns ErrEngineLoad (wrapped) if the descriptor cannot be fetched or
// is structurally incomplete; the failure is retryable.
func Load(ctx context.Context, cfg HostedConfig) (*HostedEngine, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrEngineLoad)
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	e := &HostedEngine{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     noopLogger{},
	}

	desc, err := e.fetchDescriptor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}
	if desc.EngineVersion == "" || desc.InstanceURL == "" {
		return nil, fmt.Errorf("%w: descriptor missing entry points", ErrEngineLoad)
	}
	e.descriptor = *desc

	return e, nil
}

// SetLogger sets the logger for the engine and its instances.
func (e *HostedEngine) SetLogger(logger Logger) {
	e.loggerMu.Lock()
	e.logger = logger
	e.loggerMu.Unlock()
}

func (e *HostedEngine) getLogger() Logger {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	return e.logger
}

// Version returns the pinned engine version from the bootstrap descriptor.
func (e *HostedEngine) Version() string {
	return e.descriptor.EngineVersion
}

// fetchDescriptor performs the bootstrap GET.
func (e *HostedEngine) fetchDescriptor(ctx context.Context) (*engineDescriptor, error) {
	var desc engineDescriptor
	if err := e.doJSON(ctx, http.MethodGet, e.cfg.BaseURL+"/v1/engine/descriptor", nil, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// NewInstance registers a map instance with the vendor and connects its
// event stream.
//
// Returns ErrSessionInit (wrapped) on any construction failure. A failed
// event-stream connection fails the whole construction: an instance whose
// events are lost behaves unpredictably for the inactivity logic.
func (e *HostedEngine) NewInstance(ctx context.Context, cfg InstanceConfig) (Instance, error) {
	var created struct {
		InstanceID string `json:"instance_id"`
	}
	if err := e.doJSON(ctx, http.MethodPost, e.descriptor.InstanceURL, cfg, &created); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionInit, err)
	}
	if created.InstanceID == "" {
		return nil, fmt.Errorf("%w: vendor returned no instance id", ErrSessionInit)
	}

	inst := &hostedInstance{
		engine:    e,
		id:        created.InstanceID,
		venueID:   cfg.VenueID,
		events:    make(chan Event, eventBufferSize),
		destroyed: make(chan struct{}),
	}

	if e.descriptor.EventsURL != "" {
		conn, err := e.dialEvents(ctx, created.InstanceID)
		if err != nil {
			// Best-effort cleanup of the half-built instance.
			_ = inst.deleteRemote(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("%w: connecting event stream: %w", ErrSessionInit, err)
		}
		inst.eventConn = conn
		go inst.readEvents()
	} else {
		close(inst.events)
	}

	return inst, nil
}

// dialEvents opens the vendor event WebSocket for an instance.
func (e *HostedEngine) dialEvents(ctx context.Context, instanceID string) (*websocket.Conn, error) {
	wsURL, err := url.Parse(e.descriptor.EventsURL)
	if err != nil {
		return nil, fmt.Errorf("parsing events URL: %w", err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	case "http":
		wsURL.Scheme = "ws"
	}
	q := wsURL.Query()
	q.Set("instance_id", instanceID)
	wsURL.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialling %s: %w", wsURL.Host, err)
	}
	return conn, nil
}

// doJSON performs an authenticated JSON request against the vendor API.
func (e *HostedEngine) doJSON(ctx context.Context, method, reqURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // error body is advisory
		return fmt.Errorf("%s %s: status %d: %s", method, reqURL, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// hostedInstance is one live instance on the vendor side.
type hostedInstance struct {
	engine  *HostedEngine
	id      string
	venueID string

	events    chan Event
	eventConn *websocket.Conn

	destroyed   chan struct{}
	destroyOnce sync.Once
}

// instanceURL builds a sub-path under this instance.
func (i *hostedInstance) instanceURL(suffix string) string {
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(i.engine.descriptor.InstanceURL, "/"), i.id, suffix)
}

// venueURL builds a venue-scoped data path.
func (i *hostedInstance) venueURL(suffix string) string {
	return fmt.Sprintf("%s/v1/venues/%s%s", i.engine.cfg.BaseURL, i.venueID, suffix)
}

func (i *hostedInstance) isDestroyed() bool {
	select {
	case <-i.destroyed:
		return true
	default:
		return false
	}
}

func (i *hostedInstance) ListPOIs(ctx context.Context) ([]poi.POI, error) {
	if i.isDestroyed() {
		return nil, ErrDestroyed
	}
	var out struct {
		POIs []poi.POI `json:"pois"`
	}
	if err := i.engine.doJSON(ctx, http.MethodGet, i.venueURL("/pois"), nil, &out); err != nil {
		return nil, fmt.Errorf("listing pois: %w", err)
	}
	return out.POIs, nil
}

func (i *hostedInstance) GetPOI(ctx context.Context, id string) (*poi.POI, error) {
	if i.isDestroyed() {
		return nil, ErrDestroyed
	}
	var out poi.POI
	err := i.engine.doJSON(ctx, http.MethodGet, i.venueURL("/pois/"+url.PathEscape(id)), nil, &out)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching poi %s: %w", id, err)
	}
	return &out, nil
}

func (i *hostedInstance) Search(ctx context.Context, query string) ([]poi.POI, error) {
	if i.isDestroyed() {
		return nil, ErrDestroyed
	}
	var out struct {
		Results []poi.POI `json:"results"`
	}
	u := i.venueURL("/search?q=" + url.QueryEscape(query))
	if err := i.engine.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return out.Results, nil
}

func (i *hostedInstance) GetDirections(ctx context.Context, from Location, toPOIID string, accessible bool) (*poi.Route, error) {
	if i.isDestroyed() {
		return nil, ErrDestroyed
	}
	req := map[string]any{
		"from":       from,
		"to_poi_id":  toPOIID,
		"accessible": accessible,
	}
	var route poi.Route
	err := i.engine.doJSON(ctx, http.MethodPost, i.instanceURL("/directions"), req, &route)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("directions to %s: %w", toPOIID, err)
	}
	return &route, nil
}

// command issues a fire-and-forget view command.
func (i *hostedInstance) command(ctx context.Context, name string, args map[string]any) error {
	if i.isDestroyed() {
		return ErrDestroyed
	}
	req := map[string]any{"command": name}
	for k, v := range args {
		req[k] = v
	}
	if err := i.engine.doJSON(ctx, http.MethodPost, i.instanceURL("/commands"), req, nil); err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}
	return nil
}

func (i *hostedInstance) ShowSearch(ctx context.Context) error {
	return i.command(ctx, "show_search", nil)
}

func (i *hostedInstance) SubmitSearch(ctx context.Context, query string) error {
	return i.command(ctx, "submit_search", map[string]any{"query": query})
}

func (i *hostedInstance) ShowNavigation(ctx context.Context, from Location, toPOIID string, accessible bool) error {
	return i.command(ctx, "show_navigation", map[string]any{
		"from":       from,
		"to_poi_id":  toPOIID,
		"accessible": accessible,
	})
}

func (i *hostedInstance) SetFloor(ctx context.Context, floorID string) error {
	return i.command(ctx, "set_floor", map[string]any{"floor_id": floorID})
}

func (i *hostedInstance) CaptureState(ctx context.Context) (string, error) {
	if i.isDestroyed() {
		return "", ErrDestroyed
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := i.engine.doJSON(ctx, http.MethodPost, i.instanceURL("/state/capture"), nil, &out); err != nil {
		return "", fmt.Errorf("capturing state: %w", err)
	}
	return out.Token, nil
}

func (i *hostedInstance) RestoreState(ctx context.Context, token string) error {
	return i.command(ctx, "restore_state", map[string]any{"token": token})
}

func (i *hostedInstance) ResetView(ctx context.Context) error {
	return i.command(ctx, "reset_view", nil)
}

func (i *hostedInstance) Events() <-chan Event {
	return i.events
}

// Destroy tears down the vendor instance and closes the event stream.
// Safe to call more than once.
func (i *hostedInstance) Destroy(ctx context.Context) error {
	var err error
	i.destroyOnce.Do(func() {
		close(i.destroyed)
		if i.eventConn != nil {
			i.eventConn.Close() //nolint:errcheck // unblocks readEvents; close errors are uninteresting
		}
		err = i.deleteRemote(ctx)
	})
	return err
}

// deleteRemote removes the instance on the vendor side.
func (i *hostedInstance) deleteRemote(ctx context.Context) error {
	if err := i.engine.doJSON(ctx, http.MethodDelete, i.instanceURL(""), nil, nil); err != nil {
		return fmt.Errorf("destroying instance %s: %w", i.id, err)
	}
	return nil
}

// readEvents pumps vendor events into the instance channel until the
// connection drops or the instance is destroyed. Slow consumers lose
// events rather than blocking the pump.
func (i *hostedInstance) readEvents() {
	defer close(i.events)
	for {
		var ev Event
		if err := i.eventConn.ReadJSON(&ev); err != nil {
			if !i.isDestroyed() {
				i.engine.getLogger().Warn("engine event stream closed", "instance", i.id, "error", err)
			}
			return
		}
		if ev.At.IsZero() {
			ev.At = time.Now().UTC()
		}
		select {
		case i.events <- ev:
		default:
			i.engine.getLogger().Debug("engine event dropped", "type", ev.Type)
		}
	}
}
