// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/models"
)

// featureCollection is the subset of GeoJSON the engine cares about.
// Properties stay untyped because every agency invents its own schema.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// pointCoords extracts [lon, lat] from a Point geometry. Returns false for
// missing or non-Point geometries.
func (g geometry) pointCoords() (lat, lon float64, ok bool) {
	if len(g.Coordinates) == 0 {
		return 0, 0, false
	}
	var pt []float64
	if err := json.Unmarshal(g.Coordinates, &pt); err != nil || len(pt) < 2 {
		return 0, 0, false
	}
	return pt[1], pt[0], true
}

// firstString returns the first alias present in props coercing numbers to
// their decimal form, since some feeds serve numeric IDs.
func firstString(props map[string]interface{}, aliases ...string) string {
	for _, key := range aliases {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// propFalse reports whether a property is explicitly boolean false.
func propFalse(props map[string]interface{}, key string) bool {
	v, ok := props[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}

// mapGeoJSON is the generic normalization path: decode a
// FeatureCollection and map each Point feature through the source's alias
// table.
func mapGeoJSON(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decoding %s feature collection: %w", src.Name, err)
	}

	cameras := make([]models.Camera, 0, len(fc.Features))
	for i, f := range fc.Features {
		lat, lon, ok := f.Geometry.pointCoords()
		if !ok {
			continue
		}
		if src.Map.SkipInactive && propFalse(f.Properties, "active") {
			continue
		}

		imageURL := firstString(f.Properties, src.Map.Image...)
		videoURL := ""
		if !src.Map.VideoDisabled {
			if v := firstString(f.Properties, src.Map.Video...); validStreamURL(v) {
				videoURL = v
			}
			if src.Map.VideoFlag != "" && propFalse(f.Properties, src.Map.VideoFlag) {
				videoURL = ""
			}
		}
		if src.Map.RequireVideo && videoURL == "" {
			continue
		}

		cam, ok := makeCamera(src, p, i,
			firstString(f.Properties, src.Map.ID...),
			firstString(f.Properties, src.Map.Name...),
			lat, lon, imageURL, videoURL, "", nil)
		if !ok {
			continue
		}
		if prov := firstString(f.Properties, src.Map.Provider...); prov != "" {
			cam.Provider = prov
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}
