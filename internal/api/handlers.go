// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/camgrid/internal/feeds"
	"github.com/tomtom215/camgrid/internal/models"
	"github.com/tomtom215/camgrid/internal/websocket"
)

// refreshTimeout bounds an on-demand refresh triggered through the API.
// Scheduled refreshes use the engine's own per-source timeouts.
const refreshTimeout = 2 * time.Minute

// SnapshotSource provides the current camera snapshot and on-demand
// refreshes. Satisfied by *feeds.Manager.
type SnapshotSource interface {
	Snapshot() *models.Snapshot
	Refresh(ctx context.Context) (*models.Snapshot, error)
}

// AlertSource provides active weather alerts. Satisfied by
// *feeds.AlertService.
type AlertSource interface {
	Alerts() []models.WeatherAlert
}

// Handler holds the dependencies for all API endpoints.
type Handler struct {
	snapshots SnapshotSource
	alerts    AlertSource
	hub       *websocket.Hub
	started   time.Time
}

// NewHandler creates an API handler. alerts and hub may be nil when the
// corresponding subsystem is disabled.
func NewHandler(snapshots SnapshotSource, alerts AlertSource, hub *websocket.Hub) *Handler {
	return &Handler{
		snapshots: snapshots,
		alerts:    alerts,
		hub:       hub,
		started:   time.Now(),
	}
}

// camerasRequest carries the validated query parameters for camera listing.
type camerasRequest struct {
	Search string `validate:"omitempty,max=100"`
	State  string `validate:"omitempty,max=32"`
}

// Cameras returns the current snapshot's cameras, optionally narrowed by
// the search and state query parameters. Filtering is case-insensitive
// substring matching on the camera name; state matches the two-letter code
// or the special values "all" and "OTM".
func (h *Handler) Cameras(w http.ResponseWriter, r *http.Request) {
	req := camerasRequest{
		Search: r.URL.Query().Get("search"),
		State:  r.URL.Query().Get("state"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	snap := h.snapshots.Snapshot()
	if snap == nil {
		respondJSON(w, r, http.StatusOK, &models.APIResponse{
			Status:   "success",
			Data:     []models.Camera{},
			Metadata: models.Metadata{Timestamp: time.Now()},
		})
		return
	}

	cameras := feeds.Filter(snap.Cameras, req.Search, req.State)
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   cameras,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Count:     len(cameras),
			Refreshed: &snap.Taken,
		},
	})
}

// CameraByID returns a single camera by its stable ID.
func (h *Handler) CameraByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "camera ID is required", nil)
		return
	}

	snap := h.snapshots.Snapshot()
	if snap != nil {
		for i := range snap.Cameras {
			if snap.Cameras[i].ID == id {
				respondJSON(w, r, http.StatusOK, &models.APIResponse{
					Status: "success",
					Data:   snap.Cameras[i],
					Metadata: models.Metadata{
						Timestamp: time.Now(),
						Refreshed: &snap.Taken,
					},
				})
				return
			}
		}
	}

	respondError(w, http.StatusNotFound, "NOT_FOUND", "camera does not exist", nil)
}

// Sources returns the per-source outcome of the last refresh cycle.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Snapshot()
	if snap == nil {
		respondJSON(w, r, http.StatusOK, &models.APIResponse{
			Status:   "success",
			Data:     []models.SourceStatus{},
			Metadata: models.Metadata{Timestamp: time.Now()},
		})
		return
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   snap.Statuses,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Count:     len(snap.Statuses),
			Refreshed: &snap.Taken,
		},
	})
}

// countsResponse summarizes the snapshot for dashboard headers.
type countsResponse struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
	ByType  map[string]int `json:"by_type"`
}

// Counts returns camera totals broken down by state and surface type.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	counts := countsResponse{
		ByState: map[string]int{},
		ByType:  map[string]int{},
	}

	snap := h.snapshots.Snapshot()
	var refreshed *time.Time
	if snap != nil {
		counts.Total = len(snap.Cameras)
		for i := range snap.Cameras {
			counts.ByState[snap.Cameras[i].State]++
			counts.ByType[snap.Cameras[i].Type]++
		}
		refreshed = &snap.Taken
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   counts,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Count:     counts.Total,
			Refreshed: refreshed,
		},
	})
}

// Alerts returns active severe-weather alerts reduced to point markers.
// Returns an empty list when the alert feed is disabled.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts := []models.WeatherAlert{}
	if h.alerts != nil {
		alerts = h.alerts.Alerts()
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   alerts,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Count:     len(alerts),
		},
	})
}

// Refresh triggers an immediate aggregation cycle and returns the
// per-source outcome. A cycle where every source fails keeps the previous
// snapshot and reports 502.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	snap, err := h.snapshots.Refresh(ctx)
	if err != nil {
		if errors.Is(err, feeds.ErrAllSourcesFailed) {
			respondError(w, http.StatusBadGateway, "REFRESH_FAILED", "all sources failed; previous snapshot retained", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "refresh failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   snap.Statuses,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Count:     len(snap.Cameras),
			Refreshed: &snap.Taken,
		},
	})
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "INTERNAL_ERROR", "websocket hub not running", nil)
		return
	}
	websocket.ServeWS(h.hub, w, r)
}

// healthResponse reports service liveness and snapshot freshness.
type healthResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Cameras       int        `json:"cameras"`
	Sources       int        `json:"sources"`
	FailedSources int        `json:"failed_sources"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
	Subscribers   int        `json:"subscribers"`
}

// Health reports liveness plus snapshot freshness. It always returns 200;
// "degraded" status signals a snapshot with failed sources, "starting"
// signals no snapshot yet.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "starting",
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.ClientCount()
	}

	if snap := h.snapshots.Snapshot(); snap != nil {
		resp.Status = "ok"
		resp.Cameras = len(snap.Cameras)
		resp.Sources = len(snap.Statuses)
		resp.LastRefresh = &snap.Taken
		for i := range snap.Statuses {
			if snap.Statuses[i].State == feeds.StatusFailed {
				resp.FailedSources++
			}
		}
		if resp.FailedSources > 0 {
			resp.Status = "degraded"
		}
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     resp,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
