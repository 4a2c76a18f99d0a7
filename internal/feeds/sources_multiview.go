// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/models"
)

// GeoJSON feeds whose features need more than field aliases: grouped
// views, nested camera arrays, or synthesized embed URLs.

// Nebraska publishes an array of view image URLs per feature.
func normalizeNebraska(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decoding Nebraska feature collection: %w", err)
	}

	cameras := make([]models.Camera, 0, len(fc.Features))
	for i, f := range fc.Features {
		lat, lon, ok := f.Geometry.pointCoords()
		if !ok {
			continue
		}
		if propFalse(f.Properties, "active") {
			continue
		}

		var views []models.CameraView
		if raw, isList := f.Properties["views"].([]interface{}); isList {
			for n, v := range raw {
				u, isStr := v.(string)
				if !isStr || u == "" {
					continue
				}
				views = append(views, models.CameraView{
					Description: fmt.Sprintf("View %d", n+1),
					ImageURL:    u,
				})
			}
		}
		imageURL := ""
		if len(views) == 0 {
			imageURL = firstString(f.Properties, "imageURL", "url")
		}

		cam, ok := makeCamera(src, p, i,
			firstString(f.Properties, "id"),
			firstString(f.Properties, "title"),
			lat, lon, imageURL, "", "", views)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

var sourceNebraska = Source{
	Name:      "Nebraska",
	Provider:  "Nebraska 511",
	State:     "NE",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Nebraska/nebraska.geojson",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeNebraska,
}

// Illinois publishes one feature per direction at each site; features
// sharing a CameraLocation collapse into one record with a view per
// direction, positioned at the first feature seen.
func normalizeIllinois(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decoding Illinois feature collection: %w", err)
	}

	type group struct {
		name     string
		lat, lon float64
		views    []models.CameraView
	}
	groups := make(map[string]*group)
	var order []string

	for i, f := range fc.Features {
		lat, lon, ok := f.Geometry.pointCoords()
		if !ok {
			continue
		}
		snapshot := firstString(f.Properties, "SnapShot")
		if snapshot == "" {
			continue
		}
		name := firstString(f.Properties, "CameraLocation")
		if name == "" {
			name = fmt.Sprintf("Camera %d", i)
		}

		g, seen := groups[name]
		if !seen {
			g = &group{name: name, lat: lat, lon: lon}
			groups[name] = g
			order = append(order, name)
		}
		g.views = append(g.views, models.CameraView{
			Description: name + " - " + firstString(f.Properties, "CameraDirection"),
			ImageURL:    snapshot,
		})
	}

	cameras := make([]models.Camera, 0, len(order))
	for i, name := range order {
		g := groups[name]
		cam, ok := makeCamera(src, p, i, "", g.name, g.lat, g.lon, "", "", "", g.views)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

var sourceIllinois = Source{
	Name:      "Illinois",
	Provider:  "Illinois DOT",
	State:     "IL",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Illinois/Illinois.geojson",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeIllinois,
}

// South Dakota nests a cameras array inside each feature's properties;
// only the first entry's snapshot is used.
func normalizeSouthDakota(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decoding South Dakota feature collection: %w", err)
	}

	cameras := make([]models.Camera, 0, len(fc.Features))
	for i, f := range fc.Features {
		lat, lon, ok := f.Geometry.pointCoords()
		if !ok {
			continue
		}
		nested, isList := f.Properties["cameras"].([]interface{})
		if !isList || len(nested) == 0 {
			continue
		}
		first, isMap := nested[0].(map[string]interface{})
		if !isMap {
			continue
		}
		imageURL, _ := first["image"].(string)
		if imageURL == "" {
			continue
		}

		cam, ok := makeCamera(src, p, i,
			firstString(f.Properties, "id"),
			firstString(f.Properties, "name"),
			lat, lon, imageURL, "", "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

var sourceSouthDakota = Source{
	Name:      "South Dakota",
	Provider:  "SDDOT",
	State:     "SD",
	URL:       "https://sd.cdn.iteris-atis.com/geojson/icons/metadata/icons.cameras.geojson",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeSouthDakota,
}

// Mississippi exposes no direct image or stream URLs; each site embeds
// through MDOT's viewer page keyed by site ID.
const mississippiEmbedURL = "https://mdottraffic.com/mapbubbles/camerasite.aspx?site=%s"

func normalizeMississippi(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decoding Mississippi feature collection: %w", err)
	}

	cameras := make([]models.Camera, 0, len(fc.Features))
	for i, f := range fc.Features {
		lat, lon, ok := f.Geometry.pointCoords()
		if !ok {
			continue
		}
		siteID := firstString(f.Properties, "id")
		if siteID == "" {
			continue
		}

		cam, ok := makeCamera(src, p, i, siteID,
			firstString(f.Properties, "title"),
			lat, lon, "", "", fmt.Sprintf(mississippiEmbedURL, siteID), nil)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

var sourceMississippi = Source{
	Name:      "Mississippi",
	Provider:  "MDOT",
	State:     "MS",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Mississippi/mississippi.geojson",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeMississippi,
}
