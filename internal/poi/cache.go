package poi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/terminalworks/kiosk-core/internal/geo"
)

// Cache tuning.
const (
	// cacheTTL is how long a populated cache is considered fresh. The
	// directory changes on the scale of store openings, not minutes.
	cacheTTL = 24 * time.Hour

	// ensureTimeout bounds the refetch a read accessor triggers when it
	// finds the cache empty or expired.
	ensureTimeout = 30 * time.Second

	// securityCategoryPrefix identifies checkpoint POIs in the engine's
	// taxonomy.
	securityCategoryPrefix = "services.security"

	// defaultQueueType labels checkpoint queues whose feed does not say
	// which lane they are.
	defaultQueueType = "standard"

	// defaultFallbackWaitMinutes is shown for an open checkpoint whose feed
	// reports no wait time. Overridable via SetFallbackWaitMinutes.
	defaultFallbackWaitMinutes = 15
)

// Logger defines the logging interface used by the Cache.
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

// Fetcher is the upstream POI source. The session manager implements it;
// tests inject fakes.
type Fetcher interface {
	// FetchAllPOIs returns the full venue directory.
	FetchAllPOIs(ctx context.Context) ([]POI, error)

	// FetchPOI returns one POI by id, or nil when the venue has no such
	// POI. Used for live refreshes of individual records.
	FetchPOI(ctx context.Context, id string) (*POI, error)
}

// SnapshotStore persists the last good directory fetch so the kiosk can
// serve a stale-but-useful directory through engine outages.
type SnapshotStore interface {
	Save(ctx context.Context, pois []POI) error
	// Load returns the snapshot and when it was taken. ErrNoSnapshot when
	// none has ever been saved.
	Load(ctx context.Context) ([]POI, time.Time, error)
}

// Cache is the in-memory venue directory. All reads are served from
// memory; the engine is only touched by Initialise and the security wait
// refresh. All public methods are thread-safe.
type Cache struct {
	fetcher Fetcher
	store   SnapshotStore // nil disables snapshot persistence
	kiosk   Position
	logger  Logger

	fallbackWaitMinutes int

	// initGroup collapses concurrent Initialise calls into one fetch.
	initGroup singleflight.Group

	mu           sync.RWMutex
	pois         map[string]*POI
	fetchedAt    time.Time
	fromSnapshot bool

	// tabMemo caches filter results per tab; rebuilt lazily, dropped on
	// every repopulation.
	tabMemo map[Tab][]string

	waits        []SecurityWaitTime
	waitsUpdated time.Time
}

// NewCache creates a POI cache. kiosk is the fixed reference point every
// distance is measured from; store may be nil.
func NewCache(fetcher Fetcher, store SnapshotStore, kiosk Position) *Cache {
	return &Cache{
		fetcher:             fetcher,
		store:               store,
		kiosk:               kiosk,
		logger:              noopLogger{},
		tabMemo:             make(map[Tab][]string),
		fallbackWaitMinutes: defaultFallbackWaitMinutes,
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// SetFallbackWaitMinutes overrides the wait time shown for checkpoints
// whose feed reports none. Non-positive values keep the default.
func (c *Cache) SetFallbackWaitMinutes(minutes int) {
	if minutes > 0 {
		c.fallbackWaitMinutes = minutes
	}
}

// Initialise populates the cache from the engine. Concurrent calls share
// one fetch; calls against a fresh cache return immediately. When the
// engine fetch fails the persisted snapshot is loaded instead, leaving the
// cache serviceable but flagged stale.
func (c *Cache) Initialise(ctx context.Context) error {
	c.mu.RLock()
	fresh := c.pois != nil && !c.fromSnapshot && time.Since(c.fetchedAt) < cacheTTL
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	_, err, _ := c.initGroup.Do("init", func() (any, error) {
		// Re-check under the group: the previous winner may have filled it.
		c.mu.RLock()
		fresh := c.pois != nil && !c.fromSnapshot && time.Since(c.fetchedAt) < cacheTTL
		c.mu.RUnlock()
		if fresh {
			return nil, nil
		}

		pois, err := c.fetcher.FetchAllPOIs(ctx)
		if err != nil {
			return nil, c.fallbackToSnapshot(ctx, err)
		}

		c.populate(pois, false)
		c.logger.Info("poi cache populated", "count", len(pois))

		if c.store != nil {
			if saveErr := c.store.Save(ctx, pois); saveErr != nil {
				c.logger.Warn("poi snapshot save failed", "error", saveErr)
			}
		}
		return nil, nil
	})
	return err
}

// ensure gives every read accessor initialize-on-demand semantics: an
// empty or expired cache triggers a fresh populate before the read is
// served. A failed refetch over a still-populated cache serves the stale
// data; a failed refetch over an empty cache surfaces ErrNotInitialised
// with the cause attached.
//
// A snapshot-backed cache within TTL is left alone here. Retrying the
// live fetch on every read would hammer a vendor that is already down;
// recovery goes through the explicit Initialise paths instead.
func (c *Cache) ensure() error {
	c.mu.RLock()
	initialised := c.pois != nil
	fresh := initialised && time.Since(c.fetchedAt) < cacheTTL
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ensureTimeout)
	defer cancel()

	err := c.Initialise(ctx)
	if err == nil {
		return nil
	}
	if initialised {
		c.logger.Warn("directory refresh failed, serving expired cache", "error", err)
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNotInitialised, err)
}

// fallbackToSnapshot serves the persisted directory when the engine fetch
// fails. fetchErr is returned when no snapshot can be had either.
func (c *Cache) fallbackToSnapshot(ctx context.Context, fetchErr error) error {
	if c.store == nil {
		return fmt.Errorf("fetching poi directory: %w", fetchErr)
	}

	pois, savedAt, loadErr := c.store.Load(ctx)
	if loadErr != nil {
		c.logger.Error("poi fetch failed and snapshot unavailable",
			"fetch_error", fetchErr, "snapshot_error", loadErr)
		return fmt.Errorf("fetching poi directory: %w", fetchErr)
	}

	c.populate(pois, true)
	c.logger.Warn("poi cache serving snapshot, engine fetch failed",
		"error", fetchErr, "count", len(pois), "snapshot_age", time.Since(savedAt))
	return nil
}

// populate replaces the cache contents. Distances are computed here, once
// per POI, against the fixed kiosk position. Checkpoint POIs that arrive
// with live queue data seed the wait-time list, so /security/waits has
// answers before the first periodic refresh.
func (c *Cache) populate(pois []POI, fromSnapshot bool) {
	cosLat := geo.CosLat(c.kiosk.Latitude)

	m := make(map[string]*POI, len(pois))
	for i := range pois {
		p := pois[i].Clone()
		p.DistanceFromKiosk = geo.PlanarDistanceMetres(
			c.kiosk.Latitude, c.kiosk.Longitude,
			p.Position.Latitude, p.Position.Longitude,
			cosLat,
		)
		m[p.ID] = p
	}

	var waits []SecurityWaitTime
	for _, p := range m {
		if p.Security != nil {
			waits = append(waits, c.flattenWait(p))
		}
	}
	sort.Slice(waits, func(i, j int) bool { return waits[i].ID < waits[j].ID })

	c.mu.Lock()
	c.pois = m
	c.fetchedAt = time.Now()
	c.fromSnapshot = fromSnapshot
	c.tabMemo = make(map[Tab][]string)
	if len(waits) > 0 {
		c.waits = waits
		c.waitsUpdated = time.Now()
	}
	c.mu.Unlock()
}

// Get retrieves a POI by id. Unknown ids fall through to the engine and
// are cached on success, so late additions to the venue resolve without a
// full refresh.
func (c *Cache) Get(ctx context.Context, id string) (*POI, error) {
	c.mu.RLock()
	cached, ok := c.pois[id]
	c.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	if err := c.ensure(); err != nil {
		return nil, err
	}

	// The miss may have been an empty cache; re-check after ensure.
	c.mu.RLock()
	cached, ok = c.pois[id]
	c.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	p, err := c.fetcher.FetchPOI(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching poi %s: %w", id, err)
	}
	if p == nil {
		return nil, ErrNotFound
	}

	clone := p.Clone()
	c.mu.Lock()
	cosLat := geo.CosLat(c.kiosk.Latitude)
	clone.DistanceFromKiosk = geo.PlanarDistanceMetres(
		c.kiosk.Latitude, c.kiosk.Longitude,
		clone.Position.Latitude, clone.Position.Longitude,
		cosLat,
	)
	c.pois[clone.ID] = clone
	c.tabMemo = make(map[Tab][]string)
	c.mu.Unlock()

	return clone.Clone(), nil
}

// All returns every cached POI, same floor as the kiosk first, then
// nearest first. The returned slice and its
// elements are copies.
func (c *Cache) All() ([]POI, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pois == nil {
		return nil, ErrNotInitialised
	}
	out := make([]POI, 0, len(c.pois))
	for _, p := range c.pois {
		out = append(out, *p.Clone())
	}
	c.sortForDisplay(out)
	return out, nil
}

// ByTab returns the cached POIs on a quick-filter tab, same floor first
// then nearest.
// Results are memoised per tab; filtering never mutates cache state.
func (c *Cache) ByTab(tab Tab) ([]POI, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pois == nil {
		return nil, ErrNotInitialised
	}

	ids, ok := c.tabMemo[tab]
	if !ok {
		for id, p := range c.pois {
			if MatchesTab(p.Category, tab) {
				ids = append(ids, id)
			}
		}
		c.tabMemo[tab] = ids
	}

	out := make([]POI, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.pois[id]; ok {
			out = append(out, *p.Clone())
		}
	}
	c.sortForDisplay(out)
	return out, nil
}

// Navigable returns the cached POIs a route can be computed to, nearest
// first.
func (c *Cache) Navigable() ([]POI, error) {
	return c.filter(func(p *POI) bool { return p.IsNavigable })
}

// BySecurityStatus returns cached POIs on one side of the security line,
// nearest first.
func (c *Cache) BySecurityStatus(afterSecurity bool) ([]POI, error) {
	return c.filter(func(p *POI) bool { return p.IsAfterSecurity == afterSecurity })
}

func (c *Cache) filter(keep func(*POI) bool) ([]POI, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pois == nil {
		return nil, ErrNotInitialised
	}
	var out []POI
	for _, p := range c.pois {
		if keep(p) {
			out = append(out, *p.Clone())
		}
	}
	c.sortForDisplay(out)
	return out, nil
}

// RefreshSecurityWaitTimes re-fetches every cached checkpoint POI and
// rebuilds the flattened wait-time list. On upstream failure the previous
// list keeps being served; queue data a few minutes stale beats no queue
// data.
func (c *Cache) RefreshSecurityWaitTimes(ctx context.Context) ([]SecurityWaitTime, error) {
	if err := c.ensure(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.pois == nil {
		c.mu.RUnlock()
		return nil, ErrNotInitialised
	}
	var checkpointIDs []string
	for id, p := range c.pois {
		if isSecurityCheckpoint(p) {
			checkpointIDs = append(checkpointIDs, id)
		}
	}
	c.mu.RUnlock()
	sort.Strings(checkpointIDs)

	var (
		waits   []SecurityWaitTime
		failed  int
		lastErr error
	)
	for _, id := range checkpointIDs {
		p, err := c.fetcher.FetchPOI(ctx, id)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		if p == nil || p.Security == nil {
			continue
		}

		clone := p.Clone()
		c.mu.Lock()
		if cached, ok := c.pois[id]; ok {
			clone.DistanceFromKiosk = cached.DistanceFromKiosk
			c.pois[id] = clone
		}
		c.mu.Unlock()

		waits = append(waits, c.flattenWait(clone))
	}

	if failed == len(checkpointIDs) && failed > 0 {
		c.mu.RLock()
		stale := append([]SecurityWaitTime(nil), c.waits...)
		updated := c.waitsUpdated
		c.mu.RUnlock()
		if len(stale) > 0 {
			c.logger.Warn("security wait refresh failed, serving stale data",
				"error", lastErr, "age", time.Since(updated))
			return stale, nil
		}
		return nil, fmt.Errorf("refreshing security waits: %w", lastErr)
	}
	if failed > 0 {
		c.logger.Warn("partial security wait refresh",
			"failed", failed, "total", len(checkpointIDs), "error", lastErr)
	}

	c.mu.Lock()
	c.waits = waits
	c.waitsUpdated = time.Now()
	c.mu.Unlock()

	return append([]SecurityWaitTime(nil), waits...), nil
}

// SecurityWaitTimes returns the current wait-time list: the last refresh
// when one has run, otherwise the queue data delivered with the bulk
// directory fetch.
func (c *Cache) SecurityWaitTimes() ([]SecurityWaitTime, time.Time, error) {
	if err := c.ensure(); err != nil {
		return nil, time.Time{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pois == nil {
		return nil, time.Time{}, ErrNotInitialised
	}
	return append([]SecurityWaitTime(nil), c.waits...), c.waitsUpdated, nil
}

// Clear drops all cached state. The next read triggers a fresh fetch.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.pois = nil
	c.fetchedAt = time.Time{}
	c.fromSnapshot = false
	c.tabMemo = make(map[Tab][]string)
	c.waits = nil
	c.waitsUpdated = time.Time{}
	c.mu.Unlock()
	c.logger.Info("poi cache cleared")
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Count        int       `json:"count"`
	FetchedAt    time.Time `json:"fetched_at,omitempty"`
	FromSnapshot bool      `json:"from_snapshot"`
	WaitsUpdated time.Time `json:"waits_updated,omitempty"`
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Count:        len(c.pois),
		FetchedAt:    c.fetchedAt,
		FromSnapshot: c.fromSnapshot,
		WaitsUpdated: c.waitsUpdated,
	}
}

func isSecurityCheckpoint(p *POI) bool {
	return p.Security != nil || strings.HasPrefix(strings.ToLower(p.Category), securityCategoryPrefix)
}

// flattenWait builds the display record for one checkpoint. Feeds often
// omit the queue label or report no minutes for an open lane; both get
// conservative defaults so the UI never shows a blank queue.
func (c *Cache) flattenWait(p *POI) SecurityWaitTime {
	w := SecurityWaitTime{
		ID:          p.ID,
		Name:        p.Name,
		QueueType:   p.Security.QueueType,
		WaitMinutes: p.Security.WaitMinutes,
		IsClosed:    p.Security.IsClosed,
		IsRealTime:  p.Security.IsRealTime,
		UpdatedAt:   p.Security.UpdatedAt,
		Location:    p.Landmark,
	}
	if w.QueueType == "" {
		w.QueueType = defaultQueueType
	}
	if w.WaitMinutes <= 0 && !w.IsClosed {
		w.WaitMinutes = c.fallbackWaitMinutes
	}
	if w.Location == "" {
		w.Location = p.Position.StructureName
	}
	return w
}

// sortForDisplay orders POIs the way the directory presents them: the
// kiosk's own floor first, then nearest first, with name as the tiebreak
// so equal distances stay deterministic. A shop 200m away on this floor
// beats one 50m away two levels up once stairs are involved.
func (c *Cache) sortForDisplay(pois []POI) {
	kioskFloor := c.kiosk.FloorID
	sort.SliceStable(pois, func(i, j int) bool {
		iHere := pois[i].Position.FloorID == kioskFloor
		jHere := pois[j].Position.FloorID == kioskFloor
		if iHere != jHere {
			return iHere
		}
		if pois[i].DistanceFromKiosk != pois[j].DistanceFromKiosk {
			return pois[i].DistanceFromKiosk < pois[j].DistanceFromKiosk
		}
		return pois[i].Name < pois[j].Name
	})
}
