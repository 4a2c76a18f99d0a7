// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/camgrid/internal/models"
)

// testSource builds a GeoJSON source backed by a single-feature payload
// server.
func testSource(t *testing.T, name, state string, lat, lon float64, fail bool) Source {
	t.Helper()
	payload := fmt.Sprintf(`{"features":[
		{"geometry":{"type":"Point","coordinates":[%f,%f]},
		 "properties":{"id":"1","name":"%s cam","image":"https://cams.example.com/%s.jpg"}}
	]}`, lon, lat, name, state)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)

	return Source{
		Name:     name,
		Provider: name + " DOT",
		State:    state,
		URL:      server.URL,
		Kind:     KindGeoJSON,
		Map: FieldMap{
			ID:    []string{"id"},
			Name:  []string{"name"},
			Image: []string{"image"},
		},
	}
}

func TestRefreshToleratesPartialFailure(t *testing.T) {
	sources := []Source{
		testSource(t, "Alpha", "AA", 40.1, -100.1, false),
		testSource(t, "Bravo", "BB", 41.1, -101.1, false),
		testSource(t, "Charlie", "CC", 42.1, -102.1, false),
		testSource(t, "Delta", "DD", 43.1, -103.1, true),
		testSource(t, "Echo", "EE", 44.1, -104.1, false),
		testSource(t, "Foxtrot", "FF", 45.1, -105.1, false),
	}
	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), sources, nil, nil)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(snap.Cameras) != 5 {
		t.Fatalf("got %d cameras, want 5 from the surviving sources", len(snap.Cameras))
	}
	if len(snap.Statuses) != 6 {
		t.Fatalf("got %d statuses, want one per source", len(snap.Statuses))
	}

	var failed *models.SourceStatus
	for i := range snap.Statuses {
		if snap.Statuses[i].Source == "Delta" {
			failed = &snap.Statuses[i]
		}
	}
	if failed == nil || failed.State != StatusFailed || failed.Error == "" {
		t.Errorf("failing source status = %+v", failed)
	}

	// Concatenation follows registration order.
	wantStates := []string{"AA", "BB", "CC", "EE", "FF"}
	for i, cam := range snap.Cameras {
		if cam.State != wantStates[i] {
			t.Errorf("camera %d state = %q, want %q", i, cam.State, wantStates[i])
		}
	}
}

func TestRefreshAllFailedKeepsPreviousSnapshot(t *testing.T) {
	good := []Source{testSource(t, "Alpha", "AA", 40.1, -100.1, false)}
	bad := []Source{testSource(t, "Alpha", "AA", 40.1, -100.1, true)}

	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), good, nil, nil)
	first, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	m.sources = bad
	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("err = %v, want ErrAllSourcesFailed", err)
	}
	if m.Snapshot() != first {
		t.Error("failed refresh must not replace the last good snapshot")
	}
}

func TestRefreshCrossSourceDedup(t *testing.T) {
	// Same coordinate cell from two sources: exactly one survives.
	sources := []Source{
		testSource(t, "Alpha", "AA", 40.1, -100.1, false),
		testSource(t, "Bravo", "BB", 40.1, -100.1, false),
	}
	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), sources, nil, nil)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(snap.Cameras) != 1 {
		t.Fatalf("got %d cameras, want 1 after cross-source dedup", len(snap.Cameras))
	}
}

func TestDedupPriorityFollowsRegistrationOrder(t *testing.T) {
	cell := `{"features":[
		{"geometry":{"type":"Point","coordinates":[-100.1,40.1]},
		 "properties":{"id":"1","name":"cam","image":"https://cams.example.com/c.jpg"}}
	]}`

	// The first-registered source answers slowly, the second instantly;
	// the contested cell must still go to the first-registered source.
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(cell))
	}))
	t.Cleanup(slow.Close)
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cell))
	}))
	t.Cleanup(fast.Close)

	sources := []Source{
		{Name: "Alpha", Provider: "Alpha DOT", State: "AA", URL: slow.URL, Kind: KindGeoJSON, Map: FieldMap{ID: []string{"id"}, Name: []string{"name"}, Image: []string{"image"}}},
		{Name: "Bravo", Provider: "Bravo DOT", State: "BB", URL: fast.URL, Kind: KindGeoJSON, Map: FieldMap{ID: []string{"id"}, Name: []string{"name"}, Image: []string{"image"}}},
	}
	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), sources, nil, nil)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(snap.Cameras) != 1 {
		t.Fatalf("got %d cameras, want 1 after cross-source dedup", len(snap.Cameras))
	}
	if snap.Cameras[0].State != "AA" {
		t.Errorf("cell won by %q, want first-registered source AA", snap.Cameras[0].State)
	}
}

func TestRefreshConfigDisabledSource(t *testing.T) {
	cfg := testFeedsConfig()
	cfg.Disabled = []string{"Bravo"}
	sources := []Source{
		testSource(t, "Alpha", "AA", 40.1, -100.1, false),
		testSource(t, "Bravo", "BB", 41.1, -101.1, false),
	}
	m := NewManager(cfg, NewEngine(cfg), sources, nil, nil)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(snap.Cameras) != 1 || snap.Cameras[0].State != "AA" {
		t.Fatalf("disabled source contributed records: %+v", snap.Cameras)
	}
	if snap.Statuses[1].State != StatusSkipped {
		t.Errorf("status = %+v, want skipped", snap.Statuses[1])
	}
}

type memStore struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

func (s *memStore) SaveSnapshot(snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

func (s *memStore) LoadSnapshot() (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

type memBus struct {
	mu        sync.Mutex
	published []*models.Snapshot
}

func (b *memBus) PublishSnapshot(snap *models.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, snap)
	return nil
}

func TestRefreshPersistsAndPublishes(t *testing.T) {
	store := &memStore{}
	bus := &memBus{}
	sources := []Source{testSource(t, "Alpha", "AA", 40.1, -100.1, false)}
	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), sources, store, bus)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if store.snap != snap {
		t.Error("snapshot was not persisted")
	}
	if len(bus.published) != 1 || bus.published[0] != snap {
		t.Error("snapshot event was not published")
	}
}

func TestSnapshotInvariants(t *testing.T) {
	sources := []Source{
		testSource(t, "Alpha", "AA", 40.1, -100.1, false),
		testSource(t, "Bravo", "BB", 41.1, -101.1, false),
	}
	m := NewManager(testFeedsConfig(), NewEngine(testFeedsConfig()), sources, nil, nil)
	snap, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	seen := map[string]bool{}
	for _, cam := range snap.Cameras {
		if !cam.Renderable() {
			t.Errorf("camera %s has no renderable surface", cam.ID)
		}
		if cam.ID == "" || cam.Name == "" || cam.State == "" || cam.Provider == "" {
			t.Errorf("camera missing identity fields: %+v", cam)
		}
		key := fmt.Sprintf("%.3f,%.3f", cam.Lat, cam.Lon)
		if seen[key] {
			t.Errorf("duplicate coordinate cell %s", key)
		}
		seen[key] = true
	}
	if snap.Taken.IsZero() {
		t.Error("snapshot timestamp not set")
	}
}
