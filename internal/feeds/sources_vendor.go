// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/models"
)

// Vendor API sources: agencies that serve proprietary JSON envelopes
// instead of GeoJSON.

// vendorCamera covers the CARS-program camera schema Utah and Nevada
// share. Field names vary in casing between deployments; Go's JSON
// decoder matches them case-insensitively.
type vendorCamera struct {
	ID        flexString      `json:"id"`
	Location  json.RawMessage `json:"location"`
	Latitude  flexFloat       `json:"latitude"`
	Longitude flexFloat       `json:"longitude"`
	URL       string          `json:"url"`
	ImageURL  string          `json:"imageUrl"`
	Views     []vendorView    `json:"views"`
}

type vendorView struct {
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl"`
}

// vendorLocation is the object form of the polymorphic location field.
type vendorLocation struct {
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
}

// decodeVendorList accepts the three envelope shapes these APIs use: a
// bare array, {"cameras": [...]}, or {"result": [...]}.
func decodeVendorList(body []byte) ([]vendorCamera, error) {
	var list []vendorCamera
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Cameras []vendorCamera `json:"cameras"`
		Result  []vendorCamera `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding vendor camera list: %w", err)
	}
	if envelope.Cameras != nil {
		return envelope.Cameras, nil
	}
	return envelope.Result, nil
}

// locationString returns the location field when it is a plain string,
// which these feeds use for the camera's display name.
func locationString(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// locationCoords returns coordinates from the object form of location.
func locationCoords(raw json.RawMessage) (lat, lon float64, ok bool) {
	if len(raw) == 0 || raw[0] != '{' {
		return 0, 0, false
	}
	var loc vendorLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return 0, 0, false
	}
	return float64(loc.Latitude), float64(loc.Longitude), true
}

// normalizeCARS handles the shared Utah/Nevada camera API shape.
func normalizeCARS(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	list, err := decodeVendorList(body)
	if err != nil {
		return nil, err
	}

	cameras := make([]models.Camera, 0, len(list))
	for i, cam := range list {
		lat, lon := float64(cam.Latitude), float64(cam.Longitude)
		if lat == 0 && lon == 0 {
			if llat, llon, ok := locationCoords(cam.Location); ok {
				lat, lon = llat, llon
			}
		}

		var views []models.CameraView
		for n, v := range cam.Views {
			img := v.URL
			if img == "" {
				img = v.ImageURL
			}
			if img == "" {
				continue
			}
			views = append(views, models.CameraView{
				Description: fmt.Sprintf("View %d", n+1),
				ImageURL:    img,
			})
		}

		imageURL := ""
		if len(views) == 0 {
			if cam.URL != "" {
				imageURL = cam.URL
			} else {
				imageURL = cam.ImageURL
			}
		}

		c, ok := makeCamera(src, p, i, string(cam.ID), locationString(cam.Location),
			lat, lon, imageURL, "", "", views)
		if !ok {
			continue
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

var sourceUtah = Source{
	Name:     "Utah",
	Provider: "UDOT",
	State:    "UT",
	URL:      "https://www.udottraffic.utah.gov/api/v2/get/cameras?key=%s&format=json",
	Kind:     KindCustom,
	NeedsKey: "utah",
	Hook:     normalizeCARS,
}

var sourceNevada = Source{
	Name:     "Nevada",
	Provider: "NV Roads",
	State:    "NV",
	URL:      "https://www.nvroads.com/api/v2/get/cameras?key=%s&format=json",
	Kind:     KindCustom,
	NeedsKey: "nevada",
	Hook:     normalizeCARS,
}

// Kansas serves typed view lists; a WMP entry means a live stream and
// STILL_IMAGE a snapshot.
type ksCamera struct {
	ID       flexString     `json:"id"`
	Name     string         `json:"name"`
	Location vendorLocation `json:"location"`
	Views    []ksView       `json:"views"`
}

type ksView struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func normalizeKansas(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var list []ksCamera
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding Kansas cameras: %w", err)
	}

	cameras := make([]models.Camera, 0, len(list))
	for i, cam := range list {
		if len(cam.Views) == 0 || cam.Views[0].URL == "" {
			continue
		}
		videoURL, imageURL := "", ""
		for _, v := range cam.Views {
			if v.Type == "WMP" && videoURL == "" {
				videoURL = v.URL
			}
			if v.Type == "STILL_IMAGE" && imageURL == "" {
				imageURL = v.URL
			}
		}
		if videoURL == "" && imageURL == "" {
			imageURL = cam.Views[0].URL
		}
		if videoURL != "" {
			// The stream supersedes the snapshot, matching upstream's
			// own viewer behavior.
			imageURL = ""
		}

		c, ok := makeCamera(src, p, i, string(cam.ID), cam.Name,
			float64(cam.Location.Latitude), float64(cam.Location.Longitude),
			imageURL, videoURL, "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

var sourceKansas = Source{
	Name:     "Kansas",
	Provider: "KDOT",
	State:    "KS",
	URL:      "https://kstg.carsprogram.org/cameras_v1/api/cameras",
	Kind:     KindCustom,
	Hook:     normalizeKansas,
}

// Alabama's ALGO Traffic API nests coordinates and the road description
// inside a location object and serves HLS URLs directly.
type alCamera struct {
	ID       flexString `json:"id"`
	Location alLocation `json:"location"`
	HLSURL   string     `json:"hlsUrl"`
	ImageURL string     `json:"imageUrl"`
}

type alLocation struct {
	Latitude               flexFloat `json:"latitude"`
	Longitude              flexFloat `json:"longitude"`
	DisplayRouteDesignator string    `json:"displayRouteDesignator"`
	DisplayCrossStreet     string    `json:"displayCrossStreet"`
}

func normalizeAlabama(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var list []alCamera
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding Alabama cameras: %w", err)
	}

	cameras := make([]models.Camera, 0, len(list))
	for i, cam := range list {
		name := strings.TrimSpace(fmt.Sprintf("%s @ %s",
			cam.Location.DisplayRouteDesignator, cam.Location.DisplayCrossStreet))
		if name == "@" {
			name = ""
		}

		videoURL := ""
		if validStreamURL(cam.HLSURL) {
			videoURL = cam.HLSURL
		}

		c, ok := makeCamera(src, p, i, string(cam.ID), name,
			float64(cam.Location.Latitude), float64(cam.Location.Longitude),
			cam.ImageURL, videoURL, "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

var sourceAlabama = Source{
	Name:     "Alabama",
	Provider: "ALDOT",
	State:    "AL",
	URL:      "https://api.algotraffic.com/v3.0/Cameras",
	Kind:     KindCustom,
	Hook:     normalizeAlabama,
}

// Missouri's streaming feed carries x/y coordinates and the player URL in
// an "html" field.
type moCamera struct {
	X        flexFloat `json:"x"`
	Y        flexFloat `json:"y"`
	HTML     string    `json:"html"`
	Location string    `json:"location"`
}

func normalizeMissouri(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var list []moCamera
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding Missouri cameras: %w", err)
	}

	cameras := make([]models.Camera, 0, len(list))
	for i, cam := range list {
		if !validStreamURL(cam.HTML) {
			continue
		}
		c, ok := makeCamera(src, p, i, "", cam.Location,
			float64(cam.Y), float64(cam.X), "", cam.HTML, "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

var sourceMissouri = Source{
	Name:      "Missouri",
	Provider:  "MoDOT",
	State:     "MO",
	URL:       "https://traveler.modot.org/timconfig/feed/desktop/StreamingCams2.json",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeMissouri,
}
