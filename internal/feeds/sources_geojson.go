// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

// Sources whose payload is a plain GeoJSON FeatureCollection and whose
// quirks an alias table covers. The alias ordering per field matches what
// each agency actually publishes; do not "clean it up".

var sourceConnecticut = Source{
	Name:      "Connecticut",
	Provider:  "CT Travel Smart",
	State:     "CT",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Connecticut/ct.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"cameraSiteId", "id"},
		Name:  []string{"location", "name", "title"},
		Image: []string{"image_url", "imageUrl", "image"},
		Video: []string{"stream"},
	},
}

var sourceFlorida = Source{
	Name:      "Florida",
	Provider:  "FL511",
	State:     "FL",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/main/Florida/florida.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:       []string{"id", "cameraSiteId"},
		Name:     []string{"name", "location"},
		Image:    []string{"imageUrl", "image_url", "image"},
		Provider: []string{"source"},
	},
}

var sourceMaine = Source{
	Name:      "Maine",
	Provider:  "Maine DOT",
	State:     "ME",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Maine/maine.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"location", "road"},
		Image: []string{"image", "imageUrl"},
	},
}

var sourceMassachusetts = Source{
	Name:      "Massachusetts",
	Provider:  "MassDOT",
	State:     "MA",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Massachusetts/Massachusetts.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:       []string{"id"},
		Name:     []string{"title", "tooltip"},
		Image:    []string{"image"},
		Provider: []string{"agency"},
	},
}

var sourceIdaho = Source{
	Name:      "Idaho",
	Provider:  "ITD",
	State:     "ID",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Idaho/idaho.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:       []string{"id", "cameraSiteId"},
		Name:     []string{"name", "location"},
		Image:    []string{"imageUrl", "image"},
		Provider: []string{"source"},
	},
}

var sourceMontana = Source{
	Name:      "Montana",
	Provider:  "Montana DOT",
	State:     "MT",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Montana/montana.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"camera_id", "station_id"},
		Name:  []string{"camera_name", "station_description"},
		Image: []string{"image"},
	},
}

var sourceNewHampshire = Source{
	Name:      "New Hampshire",
	Provider:  "NHDOT",
	State:     "NH",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/New%20Hampshire/nh.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"location", "road"},
		Image: []string{"image", "imageUrl"},
	},
}

var sourceNewYork = Source{
	Name:      "New York",
	Provider:  "NYSDOT",
	State:     "NY",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/New%20York/newyork.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:        []string{"cameraSiteId", "id"},
		Name:      []string{"location", "title"},
		Image:     []string{"imageUrl", "image", "image_url"},
		Video:     []string{"videoUrl"},
		VideoFlag: "hasVideo",
		Provider:  []string{"source"},
	},
}

var sourceOregon = Source{
	Name:      "Oregon",
	Provider:  "ODOT",
	State:     "OR",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Oregon/oregon.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"description", "name"},
		Image: []string{"image"},
	},
}

// PennDOT permits snapshot embedding only, so its stream URLs are dropped
// even when present in the feed.
var sourcePennsylvania = Source{
	Name:      "Pennsylvania",
	Provider:  "PennDOT",
	State:     "PA",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Pennsylvania/penndot.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:            []string{"id", "cameraSiteId"},
		Name:          []string{"name", "location"},
		Image:         []string{"imageUrl", "image", "image_url"},
		VideoDisabled: true,
	},
}

var sourceRhodeIsland = Source{
	Name:      "Rhode Island",
	Provider:  "RIDOT",
	State:     "RI",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Rhode%20Island/ri.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:       []string{"id"},
		Name:     []string{"location", "road"},
		Image:    []string{"image", "imageUrl"},
		Video:    []string{"stream"},
		Provider: []string{"agency"},
	},
}

var sourceVermont = Source{
	Name:      "Vermont",
	Provider:  "VTrans",
	State:     "VT",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Vermont/vermont.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:       []string{"id"},
		Name:     []string{"location", "road"},
		Image:    []string{"image", "imageUrl"},
		Provider: []string{"agency"},
	},
}

var sourceWashington = Source{
	Name:      "Washington",
	Provider:  "WSDOT",
	State:     "WA",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Washington/washington.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"title", "description", "owner"},
		Image: []string{"image", "imageUrl"},
	},
}

var sourceNorthCarolina = Source{
	Name:      "North Carolina",
	Provider:  "NCDOT",
	State:     "NC",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/North%20Carolina/nc.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"name"},
		Image: []string{"imageURL"},
	},
}

var sourceSouthCarolina = Source{
	Name:      "South Carolina",
	Provider:  "SCDOT",
	State:     "SC",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/South%20Carolina/sc.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"description", "name"},
		Image: []string{"image_url"},
		Video: []string{"https_url", "ios_url"},
	},
}

var sourceTennessee = Source{
	Name:      "Tennessee",
	Provider:  "TDOT",
	State:     "TN",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Tennessee/tennessee.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"title", "description"},
		Image: []string{"thumbnailUrl"},
		Video: []string{"httpsVideoUrl", "httpVideoUrl"},
	},
}

var sourceLouisiana = Source{
	Name:      "Louisiana",
	Provider:  "LADOTD",
	State:     "LA",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Louisiana/louisiana.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"id"},
		Name:  []string{"name"},
		Image: []string{"page_url"},
	},
}

var sourceMinnesota = Source{
	Name:      "Minnesota",
	Provider:  "MnDOT",
	State:     "MN",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Minnesota/mn.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:    []string{"camera_id"},
		Name:  []string{"title"},
		Image: []string{"jpg"},
		Video: []string{"m3u8"},
	},
}

// VDOT marks decommissioned cameras active=false and publishes HLS only;
// features without a stream are skipped rather than demoted to snapshots.
var sourceVirginia = Source{
	Name:      "Virginia",
	Provider:  "VDOT",
	State:     "VA",
	URL:       "https://511.vdot.virginia.gov/services/map/layers/map/cams",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		ID:           []string{"id"},
		Name:         []string{"description", "name"},
		Image:        []string{"image_url"},
		Video:        []string{"https_url"},
		RequireVideo: true,
		SkipInactive: true,
	},
}

var sourceTexasAustin = Source{
	Name:      "Texas (Austin)",
	Provider:  "Austin",
	State:     "TX",
	IDPrefix:  "TX-ATX",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Texas/Austin.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		Name:  []string{"kimley_horn_camera_name", "name"},
		Image: []string{"screenshot_address", "image_url", "url"},
	},
}

var sourceTexasHouston = Source{
	Name:      "Texas (Houston)",
	Provider:  "Houston TranStar",
	State:     "TX",
	IDPrefix:  "TX-HOU",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/Texas/Houston.geojson",
	Kind:      KindGeoJSON,
	CacheBust: true,
	Map: FieldMap{
		Name:  []string{"name", "location"},
		Image: []string{"image", "Image", "url", "Url", "image_url", "Image_Url"},
	},
}
