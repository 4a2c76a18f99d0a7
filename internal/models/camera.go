// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package models

import "time"

// Camera type discriminators. Type tells a consumer which surface to render
// first; a camera may still carry more than one surface.
const (
	TypeImage  = "image"
	TypeVideo  = "video"
	TypeIframe = "iframe"
)

// Camera is a single publishable camera after normalization and dedup.
// IDs are stable across refreshes: a source prefix (the source's ID prefix,
// or its state code when no prefix is set) joined with "-" to the upstream
// feed's native identifier, or to an 8-hex FNV-1a hash of the quantized
// coordinates when the feed supplies none. Never random.
type Camera struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	ImageURL  string       `json:"imageUrl,omitempty"`
	VideoURL  string       `json:"videoUrl,omitempty"`
	IframeURL string       `json:"iframeUrl,omitempty"`
	Views     []CameraView `json:"views,omitempty"`
	Type      string       `json:"type"`
	State     string       `json:"state"`
	Provider  string       `json:"provider"`
}

// CameraView is one angle of a multi-view installation (signal poles,
// direction-grouped approaches). When views are present the camera's
// top-level ImageURL/VideoURL mirror the first view.
type CameraView struct {
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// Renderable reports whether the camera has at least one surface a client
// could display. Cameras failing this are dropped during normalization.
func (c *Camera) Renderable() bool {
	if c.ImageURL != "" || c.VideoURL != "" || c.IframeURL != "" {
		return true
	}
	for _, v := range c.Views {
		if v.ImageURL != "" || v.VideoURL != "" {
			return true
		}
	}
	return false
}

// SourceStatus records the outcome of one source's contribution to a
// refresh cycle. Error is empty on success.
type SourceStatus struct {
	Source   string        `json:"source"`
	State    string        `json:"state"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"durationMs"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot is an immutable view of one completed refresh. The aggregator
// swaps snapshots atomically; handlers must never mutate one.
type Snapshot struct {
	Cameras  []Camera       `json:"cameras"`
	Statuses []SourceStatus `json:"statuses"`
	Taken    time.Time      `json:"taken"`
}

// WeatherAlert is an active NWS alert, served on its own endpoint and never
// merged into the camera collection.
type WeatherAlert struct {
	ID       string    `json:"id"`
	Event    string    `json:"event"`
	Headline string    `json:"headline"`
	Severity string    `json:"severity"`
	Area     string    `json:"area"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Expires  time.Time `json:"expires"`
}
