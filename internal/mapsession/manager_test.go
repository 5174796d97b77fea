package mapsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/terminalworks/kiosk-core/internal/mapengine"
	"github.com/terminalworks/kiosk-core/internal/poi"
)

// fakeInstance implements mapengine.Instance for tests.
type fakeInstance struct {
	mu         sync.Mutex
	events     chan mapengine.Event
	destroyed  bool
	destroyErr error
	calls      []string
}

func newFakeInstance() *fakeInstance {
	return &fakeInstance{events: make(chan mapengine.Event, 8)}
}

func (f *fakeInstance) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeInstance) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeInstance) ListPOIs(context.Context) ([]poi.POI, error) {
	f.record("list")
	return []poi.POI{{ID: "poi-1"}}, nil
}

func (f *fakeInstance) GetPOI(_ context.Context, id string) (*poi.POI, error) {
	f.record("get")
	return &poi.POI{ID: id}, nil
}

func (f *fakeInstance) Search(context.Context, string) ([]poi.POI, error) {
	f.record("search")
	return nil, nil
}

func (f *fakeInstance) GetDirections(context.Context, mapengine.Location, string, bool) (*poi.Route, error) {
	f.record("directions")
	return &poi.Route{}, nil
}

func (f *fakeInstance) ShowSearch(context.Context) error {
	f.record("show_search")
	return nil
}

func (f *fakeInstance) SubmitSearch(_ context.Context, query string) error {
	f.record("submit:" + query)
	return nil
}

func (f *fakeInstance) ShowNavigation(context.Context, mapengine.Location, string, bool) error {
	f.record("show_nav")
	return nil
}

func (f *fakeInstance) SetFloor(_ context.Context, floorID string) error {
	f.record("floor:" + floorID)
	return nil
}

func (f *fakeInstance) CaptureState(context.Context) (string, error) { return "tok", nil }

func (f *fakeInstance) RestoreState(_ context.Context, token string) error {
	f.record("restore:" + token)
	return nil
}

func (f *fakeInstance) ResetView(context.Context) error {
	f.record("reset")
	return nil
}

func (f *fakeInstance) Events() <-chan mapengine.Event { return f.events }

func (f *fakeInstance) Destroy(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.destroyed {
		f.destroyed = true
		close(f.events)
	}
	return f.destroyErr
}

func (f *fakeInstance) isDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

// fakeEngine implements mapengine.Engine for tests.
type fakeEngine struct {
	mu        sync.Mutex
	newCalls  int
	failNext  error
	instances []*fakeInstance
}

func (f *fakeEngine) NewInstance(context.Context, mapengine.InstanceConfig) (mapengine.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCalls++
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	inst := newFakeInstance()
	f.instances = append(f.instances, inst)
	return inst, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newCalls
}

func newTestManager(eng *fakeEngine) *Manager {
	return NewManager(Config{
		VenueID:           "test-venue",
		KioskLocation:     poi.Position{Latitude: 33.4, Longitude: -112.0, FloorID: "f1"},
		SearchSettleDelay: time.Millisecond,
	}, func(context.Context) (mapengine.Engine, error) {
		return eng, nil
	})
}

func TestLoadEngine_LoadsOnce(t *testing.T) {
	var loads int
	var mu sync.Mutex
	m := NewManager(Config{}, func(context.Context) (mapengine.Engine, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return &fakeEngine{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.LoadEngine(context.Background()); err != nil {
				t.Errorf("LoadEngine() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if err := m.LoadEngine(context.Background()); err != nil {
		t.Fatalf("LoadEngine() repeat error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
	if got := m.Status(); got != StatusEngineReady {
		t.Errorf("Status() = %v, want %v", got, StatusEngineReady)
	}
}

func TestLoadEngine_FailureIsRetryable(t *testing.T) {
	attempts := 0
	m := NewManager(Config{}, func(context.Context) (mapengine.Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("bootstrap refused")
		}
		return &fakeEngine{}, nil
	})

	if err := m.LoadEngine(context.Background()); err == nil {
		t.Fatal("LoadEngine() error = nil, want error on first attempt")
	}
	if got := m.Status(); got != StatusUnloaded {
		t.Errorf("Status() after failure = %v, want %v", got, StatusUnloaded)
	}
	if err := m.LoadEngine(context.Background()); err != nil {
		t.Fatalf("LoadEngine() retry error = %v", err)
	}
	if got := m.Status(); got != StatusEngineReady {
		t.Errorf("Status() = %v, want %v", got, StatusEngineReady)
	}
}

func TestInitSession_ReplacesExistingInstance(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	first, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	second, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}

	if eng.calls() != 2 {
		t.Errorf("NewInstance called %d times, want 2", eng.calls())
	}
	if !first.(*fakeInstance).isDestroyed() {
		t.Error("first instance not destroyed on re-init")
	}
	if second.(*fakeInstance).isDestroyed() {
		t.Error("second instance destroyed, want live")
	}

	live, ok := m.Session()
	if !ok || live != second {
		t.Error("Session() does not return the newest instance")
	}
}

func TestWaitForSession_ResolvedByInit(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	const waiters = 4
	results := make(chan mapengine.Instance, waiters)
	errs := make(chan error, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := m.WaitForSession(context.Background())
			results <- inst
			errs <- err
		}()
	}

	// Give the waiters time to park on the pending slot.
	time.Sleep(10 * time.Millisecond)

	created, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("WaitForSession() error = %v", err)
		}
	}
	for inst := range results {
		if inst != created {
			t.Error("waiter received a different instance than InitSession created")
		}
	}
}

func TestWaitForSession_RejectedOnInitFailure(t *testing.T) {
	eng := &fakeEngine{failNext: errors.New("venue unknown")}
	m := newTestManager(eng)

	waitErr := make(chan error, 1)
	go func() {
		_, err := m.WaitForSession(context.Background())
		waitErr <- err
	}()
	time.Sleep(10 * time.Millisecond)

	if _, err := m.InitSession(context.Background()); err == nil {
		t.Fatal("InitSession() error = nil, want error")
	}
	if err := <-waitErr; err == nil {
		t.Error("waiter error = nil, want init failure")
	}

	// The pending slot must clear so the next init serves new waiters.
	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() retry error = %v", err)
	}
	got, err := m.WaitForSession(context.Background())
	if err != nil {
		t.Fatalf("WaitForSession() after retry error = %v", err)
	}
	if got != inst {
		t.Error("WaitForSession() returned stale instance after retry")
	}
}

func TestWaitForSession_ContextCancelled(t *testing.T) {
	m := newTestManager(&fakeEngine{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.WaitForSession(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForSession() error = %v, want deadline exceeded", err)
	}
}

func TestDestroySession_SwallowsEngineError(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	inst.(*fakeInstance).destroyErr = errors.New("engine teardown panic")

	m.DestroySession()

	if _, ok := m.Session(); ok {
		t.Error("Session() still live after DestroySession")
	}
	if got := m.Status(); got != StatusEngineReady {
		t.Errorf("Status() = %v, want %v", got, StatusEngineReady)
	}

	// The manager must recover with a fresh init.
	if _, err := m.InitSession(context.Background()); err != nil {
		t.Fatalf("InitSession() after destroy error = %v", err)
	}
}

func TestRunFlightSearch_NoSessionIsNoOp(t *testing.T) {
	m := newTestManager(&fakeEngine{})
	if err := m.RunFlightSearch(context.Background(), "AA123", true); err != nil {
		t.Errorf("RunFlightSearch() without session error = %v, want nil", err)
	}
}

func TestRunFlightSearch_OpensPanelBeforeSubmitting(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	if err := m.RunFlightSearch(context.Background(), "AA123", true); err != nil {
		t.Fatalf("RunFlightSearch() error = %v", err)
	}

	calls := inst.(*fakeInstance).callLog()
	if len(calls) != 2 || calls[0] != "show_search" || calls[1] != "submit:AA123" {
		t.Errorf("call order = %v, want [show_search submit:AA123]", calls)
	}
}

func TestRunFlightSearch_SkipsPanelWhenUIHidden(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	if err := m.RunFlightSearch(context.Background(), "AA123", false); err != nil {
		t.Fatalf("RunFlightSearch() error = %v", err)
	}

	calls := inst.(*fakeInstance).callLog()
	if len(calls) != 1 || calls[0] != "submit:AA123" {
		t.Errorf("call order = %v, want [submit:AA123]", calls)
	}
}

func TestRestoreToConfiguredState(t *testing.T) {
	eng := &fakeEngine{}
	m := NewManager(Config{HomeStateToken: "home-tok", SearchSettleDelay: time.Millisecond},
		func(context.Context) (mapengine.Engine, error) { return eng, nil })

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	if err := m.RestoreToConfiguredState(context.Background()); err != nil {
		t.Fatalf("RestoreToConfiguredState() error = %v", err)
	}

	calls := inst.(*fakeInstance).callLog()
	if len(calls) != 1 || calls[0] != "restore:home-tok" {
		t.Errorf("calls = %v, want [restore:home-tok]", calls)
	}
}

func TestRestoreToConfiguredState_NoTokenResetsView(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	if err := m.RestoreToConfiguredState(context.Background()); err != nil {
		t.Fatalf("RestoreToConfiguredState() error = %v", err)
	}

	calls := inst.(*fakeInstance).callLog()
	if len(calls) != 1 || calls[0] != "reset" {
		t.Errorf("calls = %v, want [reset]", calls)
	}
}

func TestSubscribe_RepublishesEngineEvents(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	ch, cancel := m.Subscribe()
	defer cancel()

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	inst.(*fakeInstance).events <- mapengine.Event{
		Type:  mapengine.EventPOISelected,
		POIID: "poi-42",
		At:    time.Now(),
	}

	deadline := time.After(time.Second)
	for {
		select {
		case n := <-ch:
			if n.Type == NoteStateChanged {
				continue // lifecycle chatter
			}
			if n.Type != NotePOISelected || n.POIID != "poi-42" {
				t.Errorf("notification = %+v, want poi_selected for poi-42", n)
			}
			return
		case <-deadline:
			t.Fatal("timeout waiting for republished engine event")
		}
	}
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	inst, err := m.InitSession(context.Background())
	if err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	m.Close()

	if !inst.(*fakeInstance).isDestroyed() {
		t.Error("instance not destroyed on Close")
	}
	if _, err := m.WaitForSession(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("WaitForSession() error = %v, want ErrClosed", err)
	}
	if _, err := m.InitSession(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("InitSession() error = %v, want ErrClosed", err)
	}
	if got := m.Status(); got != StatusDestroyed {
		t.Errorf("Status() = %v, want %v", got, StatusDestroyed)
	}
}

func TestStats(t *testing.T) {
	eng := &fakeEngine{}
	m := newTestManager(eng)

	stats := m.Stats()
	if stats.Status != StatusUnloaded || stats.SessionLive {
		t.Errorf("Stats() before load = %+v", stats)
	}

	if _, err := m.InitSession(context.Background()); err != nil {
		t.Fatalf("InitSession() error = %v", err)
	}
	stats = m.Stats()
	if stats.Status != StatusReady || !stats.SessionLive || !stats.EngineLoaded || stats.InitCount != 1 {
		t.Errorf("Stats() after init = %+v", stats)
	}
}
