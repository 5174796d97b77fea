package mapengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/terminalworks/kiosk-core/internal/poi"
)

// fakeVendor is an in-process stand-in for the hosted map API.
type fakeVendor struct {
	srv *httptest.Server

	mu       sync.Mutex
	commands []string
	deleted  bool
}

func newFakeVendor(t *testing.T) *fakeVendor {
	t.Helper()
	v := &fakeVendor{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/engine/descriptor", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"engine_version": "4.2.0",
			"instance_url":   v.srv.URL + "/v1/instances",
		})
	})
	mux.HandleFunc("POST /v1/instances", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"instance_id": "inst-1"}) //nolint:errcheck
	})
	mux.HandleFunc("GET /v1/venues/phx/pois", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"pois": []poi.POI{ //nolint:errcheck
			{ID: "cafe-1", Name: "Corner Coffee", Category: "eat.cafe"},
			{ID: "gate-b22", Name: "Gate B22", Category: "gate"},
		}})
	})
	mux.HandleFunc("GET /v1/venues/phx/pois/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "cafe-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(poi.POI{ID: "cafe-1", Name: "Corner Coffee"}) //nolint:errcheck
	})
	mux.HandleFunc("GET /v1/venues/phx/search", func(w http.ResponseWriter, r *http.Request) {
		var results []poi.POI
		if strings.Contains(strings.ToLower(r.URL.Query().Get("q")), "coffee") {
			results = append(results, poi.POI{ID: "cafe-1", Name: "Corner Coffee"})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results}) //nolint:errcheck
	})
	mux.HandleFunc("POST /v1/instances/inst-1/commands", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		v.mu.Lock()
		v.commands = append(v.commands, body["command"].(string))
		v.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/instances/inst-1/state/capture", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "state-token-1"}) //nolint:errcheck
	})
	mux.HandleFunc("DELETE /v1/instances/inst-1", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		v.deleted = true
		v.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	v.srv = httptest.NewServer(mux)
	t.Cleanup(v.srv.Close)
	return v
}

func (v *fakeVendor) load(t *testing.T) *HostedEngine {
	t.Helper()
	e, err := Load(context.Background(), HostedConfig{BaseURL: v.srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return e
}

func (v *fakeVendor) instance(t *testing.T) Instance {
	t.Helper()
	inst, err := v.load(t).NewInstance(context.Background(), InstanceConfig{VenueID: "phx"})
	if err != nil {
		t.Fatalf("NewInstance() error = %v", err)
	}
	return inst
}

func TestLoad(t *testing.T) {
	v := newFakeVendor(t)

	e := v.load(t)
	if e.Version() != "4.2.0" {
		t.Errorf("Version() = %q, want %q", e.Version(), "4.2.0")
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	_, err := Load(context.Background(), HostedConfig{})
	if !errors.Is(err, ErrEngineLoad) {
		t.Errorf("Load() error = %v, want ErrEngineLoad", err)
	}
}

func TestLoad_IncompleteDescriptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"engine_version": "4.2.0"}) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := Load(context.Background(), HostedConfig{BaseURL: srv.URL, APIKey: "k"})
	if !errors.Is(err, ErrEngineLoad) {
		t.Errorf("Load() error = %v, want ErrEngineLoad", err)
	}
}

func TestNewInstance_VendorRejection(t *testing.T) {
	v := newFakeVendor(t)
	e := v.load(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{}) //nolint:errcheck
	}))
	defer srv.Close()
	e.descriptor.InstanceURL = srv.URL

	_, err := e.NewInstance(context.Background(), InstanceConfig{VenueID: "phx"})
	if !errors.Is(err, ErrSessionInit) {
		t.Errorf("NewInstance() error = %v, want ErrSessionInit", err)
	}
}

func TestInstance_ListPOIs(t *testing.T) {
	inst := newFakeVendor(t).instance(t)

	pois, err := inst.ListPOIs(context.Background())
	if err != nil {
		t.Fatalf("ListPOIs() error = %v", err)
	}
	if len(pois) != 2 {
		t.Fatalf("ListPOIs() = %d pois, want 2", len(pois))
	}
	if pois[0].ID != "cafe-1" {
		t.Errorf("pois[0].ID = %q, want %q", pois[0].ID, "cafe-1")
	}
}

func TestInstance_GetPOI_NotFoundIsNil(t *testing.T) {
	inst := newFakeVendor(t).instance(t)

	p, err := inst.GetPOI(context.Background(), "no-such-poi")
	if err != nil {
		t.Fatalf("GetPOI() error = %v", err)
	}
	if p != nil {
		t.Errorf("GetPOI() = %+v, want nil", p)
	}
}

func TestInstance_Search(t *testing.T) {
	inst := newFakeVendor(t).instance(t)

	pois, err := inst.Search(context.Background(), "coffee shop")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(pois) != 1 || pois[0].ID != "cafe-1" {
		t.Errorf("Search() = %+v, want single cafe-1 result", pois)
	}
}

func TestInstance_ViewCommands(t *testing.T) {
	v := newFakeVendor(t)
	inst := v.instance(t)
	ctx := context.Background()

	if err := inst.ShowSearch(ctx); err != nil {
		t.Fatalf("ShowSearch() error = %v", err)
	}
	if err := inst.SubmitSearch(ctx, "AA123"); err != nil {
		t.Fatalf("SubmitSearch() error = %v", err)
	}
	if err := inst.SetFloor(ctx, "f2"); err != nil {
		t.Fatalf("SetFloor() error = %v", err)
	}

	v.mu.Lock()
	got := append([]string(nil), v.commands...)
	v.mu.Unlock()
	want := []string{"show_search", "submit_search", "set_floor"}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("commands[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInstance_CaptureState(t *testing.T) {
	inst := newFakeVendor(t).instance(t)

	token, err := inst.CaptureState(context.Background())
	if err != nil {
		t.Fatalf("CaptureState() error = %v", err)
	}
	if token != "state-token-1" {
		t.Errorf("CaptureState() = %q, want %q", token, "state-token-1")
	}
}

func TestInstance_Destroy(t *testing.T) {
	v := newFakeVendor(t)
	inst := v.instance(t)
	ctx := context.Background()

	if err := inst.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	v.mu.Lock()
	deleted := v.deleted
	v.mu.Unlock()
	if !deleted {
		t.Error("Destroy() did not delete the vendor instance")
	}

	// Repeat destroys are no-ops, and data calls fail fast.
	if err := inst.Destroy(ctx); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
	if _, err := inst.ListPOIs(ctx); !errors.Is(err, ErrDestroyed) {
		t.Errorf("ListPOIs() after destroy error = %v, want ErrDestroyed", err)
	}

	// The event channel closes with the instance.
	if _, open := <-inst.Events(); open {
		t.Error("Events() channel still open after destroy")
	}
}
