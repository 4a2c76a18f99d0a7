// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package feeds implements the upstream camera feed pipeline: one generic
// engine, a declarative descriptor per provider, and the aggregator that
// joins all sources into a deduplicated snapshot.
package feeds

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/dedupe"
	"github.com/tomtom215/camgrid/internal/geo"
	"github.com/tomtom215/camgrid/internal/metrics"
	"github.com/tomtom215/camgrid/internal/models"
)

// Kind selects the decode path for a source's payload.
type Kind int

const (
	// KindGeoJSON is a GeoJSON FeatureCollection handled by the generic
	// field-mapping engine (most state DOT feeds).
	KindGeoJSON Kind = iota
	// KindCustom delegates the whole payload to the source's Hook
	// (vendor JSON envelopes, ArcGIS, JSONP, nested city maps).
	KindCustom
)

// Hook normalizes a raw payload for sources whose shape a mapping table
// cannot express. It must not panic; any failure is returned as an error
// and the source contributes nothing for the cycle.
type Hook func(src Source, body []byte, p *Pass) ([]models.Camera, error)

// FieldMap declares, per canonical attribute, the ordered property-name
// aliases to try when normalizing a GeoJSON feature. First present alias
// wins.
type FieldMap struct {
	ID       []string
	Name     []string
	Image    []string
	Video    []string
	Provider []string

	// VideoDisabled drops any video URL the feed carries. One upstream
	// publishes stream URLs it does not permit embedding.
	VideoDisabled bool

	// VideoFlag names a boolean property that, when explicitly false,
	// suppresses the feature's video URL.
	VideoFlag string

	// RequireVideo drops features with no usable video URL even when an
	// image is present.
	RequireVideo bool

	// SkipInactive drops features whose "active" property is false.
	SkipInactive bool
}

// Source describes one upstream provider declaratively.
type Source struct {
	// Name is the registration key used in logs, metrics, and statuses.
	Name string
	// Provider is the default human-readable agency name; a FieldMap
	// Provider alias overrides it per record.
	Provider string
	// State is the two-letter code stamped on every record.
	State string
	// IDPrefix namespaces record IDs; defaults to State when empty.
	IDPrefix string

	URL  string
	Kind Kind

	// CacheBust appends a timestamp query param, for CDN-fronted feeds
	// that otherwise serve stale bodies.
	CacheBust bool

	Headers map[string]string

	Map  FieldMap
	Hook Hook

	// NeedsKey names the config API key this source requires; the source
	// is skipped when the key is empty.
	NeedsKey string

	// Disabled sources keep their descriptor but never fetch.
	Disabled       bool
	DisabledReason string
}

func (s Source) idPrefix() string {
	if s.IDPrefix != "" {
		return s.IDPrefix
	}
	return s.State
}

/// Pass carries one source's normalization state: a dedup index that
// collapses duplicates within the source's own payload, and the feed
// config. Each source gets a fresh Pass per refresh; cross-source dedup
// happens later, when the aggregator joins results in registration order.
type Pass struct {
	Index *dedupe.Index
	Cfg   config.FeedsConfig
}

// NewPass creates the normalization state for one source in one cycle.
func NewPass(cfg config.FeedsConfig) *Pass {
	return &Pass{Index: dedupe.NewIndex(), Cfg: cfg}
}

// Claim attempts to take the dedup cell for a coordinate pair, recording
// a metric when the cell is already held.
func (p *Pass) Claim(lat, lon float64) bool {
	if p.Index.Claim(lat, lon) {
		return true
	}
	metrics.DedupRejected.Inc()
	return false
}

// makeCamera assembles and validates one canonical record. Returns false
// when the record is dropped: bad coordinates, no renderable surface, or a
// dedup collision. seq is the feature's position in its payload, used for
// synthetic names.
func makeCamera(src Source, p *Pass, seq int, nativeID, name string, lat, lon float64, imageURL, videoURL, iframeURL string, views []models.CameraView) (models.Camera, bool) {
	if !geo.ValidCoords(lat, lon) {
		return models.Camera{}, false
	}

	// Views mirror into the top-level surfaces.
	if len(views) > 0 {
		if imageURL == "" {
			imageURL = views[0].ImageURL
		}
		if videoURL == "" {
			videoURL = views[0].VideoURL
		}
	}

	camType := models.TypeImage
	switch {
	case videoURL != "":
		camType = models.TypeVideo
	case imageURL != "":
		camType = models.TypeImage
	case iframeURL != "":
		camType = models.TypeIframe
	default:
		return models.Camera{}, false
	}

	if !p.Claim(lat, lon) {
		return models.Camera{}, false
	}

	if name == "" {
		name = fmt.Sprintf("%s Camera %d", src.State, seq)
	}

	return models.Camera{
		ID:        stableID(src, nativeID, lat, lon),
		Name:      name,
		Lat:       lat,
		Lon:       lon,
		ImageURL:  imageURL,
		VideoURL:  videoURL,
		IframeURL: iframeURL,
		Views:     views,
		Type:      camType,
		State:     src.State,
		Provider:  src.Provider,
	}, true
}

// stableID derives a refresh-stable identifier: the provider's native ID
// when one exists, otherwise an FNV-1a hash of the quantized coordinates.
// Never random, so "the same camera" survives across snapshots.
func stableID(src Source, nativeID string, lat, lon float64) string {
	if nativeID != "" {
		return src.idPrefix() + "-" + nativeID
	}
	h := fnv.New32a()
	h.Write([]byte(geo.QuantizeKey(lat, lon)))
	return fmt.Sprintf("%s-%08x", src.idPrefix(), h.Sum32())
}

// validStreamURL reports whether a candidate video URL parses as an
// absolute http/https URL. Feeds routinely carry junk in stream fields.
func validStreamURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// stateCodes maps full US state names to postal codes, for feeds keyed by
// state name.
var stateCodes = map[string]string{
	"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR", "California": "CA",
	"Colorado": "CO", "Connecticut": "CT", "Delaware": "DE", "Florida": "FL", "Georgia": "GA",
	"Hawaii": "HI", "Idaho": "ID", "Illinois": "IL", "Indiana": "IN", "Iowa": "IA",
	"Kansas": "KS", "Kentucky": "KY", "Louisiana": "LA", "Maine": "ME", "Maryland": "MD",
	"Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN", "Mississippi": "MS", "Missouri": "MO",
	"Montana": "MT", "Nebraska": "NE", "Nevada": "NV", "New Hampshire": "NH", "New Jersey": "NJ",
	"New Mexico": "NM", "New York": "NY", "North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH",
	"Oklahoma": "OK", "Oregon": "OR", "Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC",
	"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT", "Vermont": "VT",
	"Virginia": "VA", "Washington": "WA", "West Virginia": "WV", "Wisconsin": "WI", "Wyoming": "WY",
}

// stateCode resolves a full state name to its postal code, falling back to
// the first two letters uppercased.
func stateCode(name string) string {
	if code, ok := stateCodes[name]; ok {
		return code
	}
	if len(name) >= 2 {
		return strings.ToUpper(name[:2])
	}
	return strings.ToUpper(name)
}
