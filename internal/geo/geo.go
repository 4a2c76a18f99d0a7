// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package geo

import (
	"fmt"
	"math"
)

// earthRadius is the WGS84 spherical radius used by Web Mercator (EPSG:3857).
const earthRadius = 6378137.0

// WebMercatorToLatLon converts projected EPSG:3857 meters to WGS84 degrees.
// ArcGIS feature services commonly return geometry in this projection.
func WebMercatorToLatLon(x, y float64) (lat, lon float64) {
	lon = x * (180.0 / math.Pi) / earthRadius
	lat = math.Atan(math.Sinh(y/earthRadius)) * (180.0 / math.Pi)
	return lat, lon
}

// QuantizeKey returns the spatial dedup key for a coordinate pair: each
// component rounded to 3 decimal places (~110m at the equator). Two cameras
// in the same quantized cell are treated as duplicates.
func QuantizeKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", round3(lat), round3(lon))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ValidCoords reports whether a coordinate pair is publishable. Rejects
// NaN, infinities, the (0,0) null island sentinel many feeds emit for
// unpositioned cameras, and out-of-range values.
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
