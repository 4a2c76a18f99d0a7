// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/dedupe"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/metrics"
	"github.com/tomtom215/camgrid/internal/models"
)

// Source status states as reported in snapshot metadata.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrAllSourcesFailed is returned when a refresh produced nothing usable;
// the previous snapshot is retained in that case.
var ErrAllSourcesFailed = errors.New("all sources failed")

// SnapshotPersister saves the latest good snapshot across restarts.
type SnapshotPersister interface {
	SaveSnapshot(snap *models.Snapshot) error
	LoadSnapshot() (*models.Snapshot, error)
}

// Publisher announces a completed refresh to in-process subscribers.
type Publisher interface {
	PublishSnapshot(snap *models.Snapshot) error
}

// Manager owns the refresh loop: it fans the source list out through the
// engine, waits for every source to settle, and swaps in the joined
// snapshot. A failing source costs its own records only.
type Manager struct {
	cfg     config.FeedsConfig
	engine  *Engine
	sources []Source

	store SnapshotPersister
	bus   Publisher

	mu       sync.RWMutex
	snapshot *models.Snapshot

	// refreshMu serializes refresh cycles; Serve's ticker and manual
	// RefreshNow calls may otherwise overlap.
	refreshMu sync.Mutex
}

// NewManager wires a manager over the given sources. store and bus may be
// nil for deployments without persistence or event fan-out.
func NewManager(cfg config.FeedsConfig, engine *Engine, sources []Source, store SnapshotPersister, bus Publisher) *Manager {
	return &Manager{
		cfg:     cfg,
		engine:  engine,
		sources: sources,
		store:   store,
		bus:     bus,
	}
}

// Serve implements suture.Service: restore the persisted snapshot, run an
// immediate refresh, then refresh on the configured interval until the
// context is cancelled.
func (m *Manager) Serve(ctx context.Context) error {
	if m.store != nil && m.Snapshot() == nil {
		if snap, err := m.store.LoadSnapshot(); err != nil {
			logging.Warn().Err(err).Msg("Failed to restore persisted snapshot")
		} else if snap != nil {
			m.setSnapshot(snap)
			logging.Info().
				Int("cameras", len(snap.Cameras)).
				Time("taken", snap.Taken).
				Msg("Restored persisted snapshot")
		}
	}

	if _, err := m.Refresh(ctx); err != nil {
		logging.Error().Err(err).Msg("Initial feed refresh failed")
	}

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil {
				logging.Error().Err(err).Msg("Scheduled feed refresh failed")
			}
		}
	}
}

func (m *Manager) String() string { return "feeds.Manager" }

// Snapshot returns the current snapshot, or nil before the first
// successful refresh.
func (m *Manager) Snapshot() *models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (m *Manager) setSnapshot(snap *models.Snapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
}

// Refresh runs one full aggregation cycle and returns the new snapshot.
// Sources fetch and normalize concurrently, each against its own dedup
// index; the join waits for every source to settle and then admits records
// into the cross-source index sequentially in registration order, so the
// winner of a contested cell never depends on which fetch finished first.
// When nothing succeeds the previous snapshot stays.
func (m *Manager) Refresh(ctx context.Context) (*models.Snapshot, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	results := make([][]models.Camera, len(m.sources))
	statuses := make([]models.SourceStatus, len(m.sources))

	var wg sync.WaitGroup
	for i, src := range m.sources {
		if slices.Contains(m.cfg.Disabled, src.Name) {
			statuses[i] = models.SourceStatus{
				Source: src.Name,
				State:  StatusSkipped,
				Error:  "disabled by configuration",
			}
			continue
		}

		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			began := time.Now()
			cams, err := m.engine.Collect(ctx, src, NewPass(m.cfg))
			elapsed := time.Since(began)

			status := models.SourceStatus{
				Source:   src.Name,
				Duration: elapsed,
				Count:    len(cams),
			}
			switch {
			case errors.Is(err, ErrSourceSkipped):
				status.State = StatusSkipped
				status.Error = err.Error()
			case err != nil:
				status.State = StatusFailed
				status.Error = err.Error()
				logging.Warn().Err(err).Str("source", src.Name).Msg("Source refresh failed")
			default:
				status.State = StatusOK
				results[i] = cams
			}
			statuses[i] = status
			metrics.RecordSourceResult(src.Name, len(cams), elapsed, err)
		}(i, src)
	}
	wg.Wait()

	total := 0
	succeeded := 0
	for i := range results {
		total += len(results[i])
		if statuses[i].State == StatusOK {
			succeeded++
		}
	}

	if succeeded == 0 {
		metrics.RefreshTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: 0 of %d sources succeeded", ErrAllSourcesFailed, len(m.sources))
	}

	// Positional join: sources registered earlier hold dedup priority
	// over later ones regardless of fetch completion order.
	index := dedupe.NewIndex()
	cameras := make([]models.Camera, 0, total)
	for _, r := range results {
		for _, cam := range r {
			if !index.Claim(cam.Lat, cam.Lon) {
				metrics.DedupRejected.Inc()
				continue
			}
			cameras = append(cameras, cam)
		}
	}

	snap := &models.Snapshot{
		Cameras:  cameras,
		Statuses: statuses,
		Taken:    time.Now().UTC(),
	}
	m.setSnapshot(snap)

	elapsed := time.Since(start)
	metrics.RefreshTotal.WithLabelValues("success").Inc()
	metrics.RefreshDuration.Observe(elapsed.Seconds())
	metrics.CamerasTotal.Set(float64(len(cameras)))
	logging.Info().
		Int("cameras", len(cameras)).
		Int("sources_ok", succeeded).
		Int("sources", len(m.sources)).
		Dur("elapsed", elapsed).
		Msg("Feed refresh complete")

	if m.store != nil {
		if err := m.store.SaveSnapshot(snap); err != nil {
			logging.Warn().Err(err).Msg("Failed to persist snapshot")
		}
	}
	if m.bus != nil {
		if err := m.bus.PublishSnapshot(snap); err != nil {
			logging.Warn().Err(err).Msg("Failed to publish snapshot event")
		}
	}
	return snap, nil
}
