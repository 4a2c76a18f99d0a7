// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/models"
)

// alertsRefreshInterval matches the NWS guidance for polling the active
// alerts endpoint.
const alertsRefreshInterval = 2 * time.Minute

// severe weather events worth overlaying on a camera map.
const alertEvents = "Tornado Warning,Severe Thunderstorm Warning,Flash Flood Warning,Special Weather Statement,Tornado Watch,Severe Thunderstorm Watch"

// AlertService polls the National Weather Service active-alerts API and
// keeps the current set in memory. Alert geometry is reduced to the
// centroid of the first polygon ring.
type AlertService struct {
	cfg    config.AlertsConfig
	client *http.Client

	mu     sync.RWMutex
	alerts []models.WeatherAlert
}

// NewAlertService builds the poller; the endpoint comes from config so
// tests can point it at a local server.
func NewAlertService(cfg config.AlertsConfig) *AlertService {
	return &AlertService{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Serve implements suture.Service.
func (s *AlertService) Serve(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial weather alert fetch failed")
	}
	ticker := time.NewTicker(alertsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("Weather alert fetch failed")
			}
		}
	}
}

func (s *AlertService) String() string { return "feeds.AlertService" }

// Alerts returns the current active alerts.
func (s *AlertService) Alerts() []models.WeatherAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts
}

type nwsResponse struct {
	Features []nwsFeature `json:"features"`
}

type nwsFeature struct {
	ID         string   `json:"id"`
	Geometry   geometry `json:"geometry"`
	Properties struct {
		Event    string    `json:"event"`
		Headline string    `json:"headline"`
		Severity string    `json:"severity"`
		AreaDesc string    `json:"areaDesc"`
		Expires  time.Time `json:"expires"`
	} `json:"properties"`
}

func (s *AlertService) refresh(ctx context.Context) error {
	target := s.cfg.URL + "?event=" + urlQueryEscape(alertEvents) + "&status=actual"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building alerts request: %w", err)
	}
	// api.weather.gov requires an identifying User-Agent.
	req.Header.Set("User-Agent", "camgrid/1.0 (+https://github.com/tomtom215/camgrid)")
	req.Header.Set("Accept", "application/geo+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching alerts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fetching alerts: upstream status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return fmt.Errorf("reading alerts body: %w", err)
	}

	var nws nwsResponse
	if err := json.Unmarshal(body, &nws); err != nil {
		return fmt.Errorf("decoding alerts: %w", err)
	}

	alerts := make([]models.WeatherAlert, 0, len(nws.Features))
	for _, f := range nws.Features {
		lat, lon, ok := polygonCentroid(f.Geometry)
		if !ok {
			continue
		}
		alerts = append(alerts, models.WeatherAlert{
			ID:       f.ID,
			Event:    f.Properties.Event,
			Headline: f.Properties.Headline,
			Severity: f.Properties.Severity,
			Area:     f.Properties.AreaDesc,
			Lat:      lat,
			Lon:      lon,
			Expires:  f.Properties.Expires,
		})
	}

	s.mu.Lock()
	s.alerts = alerts
	s.mu.Unlock()
	logging.Debug().Int("alerts", len(alerts)).Msg("Weather alerts refreshed")
	return nil
}

// polygonCentroid averages the first ring of a Polygon geometry. Alerts
// without geometry (zone-referenced ones) are dropped.
func polygonCentroid(g geometry) (lat, lon float64, ok bool) {
	if g.Type != "Polygon" || len(g.Coordinates) == 0 {
		return 0, 0, false
	}
	var rings [][][]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil || len(rings) == 0 || len(rings[0]) == 0 {
		return 0, 0, false
	}
	var sumLat, sumLon float64
	for _, pt := range rings[0] {
		if len(pt) < 2 {
			return 0, 0, false
		}
		sumLon += pt[0]
		sumLat += pt[1]
	}
	n := float64(len(rings[0]))
	return sumLat / n, sumLon / n, true
}

func urlQueryEscape(s string) string {
	// net/url escapes spaces as '+' in queries; NWS wants %20.
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			out = append(out, '%', '2', '0')
		case c == ',':
			out = append(out, c)
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			out = append(out, c)
		default:
			out = append(out, fmt.Sprintf("%%%02X", c)...)
		}
	}
	return string(out)
}
