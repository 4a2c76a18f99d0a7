// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/geo"
	"github.com/tomtom215/camgrid/internal/models"
)

// Iowa serves an ArcGIS FeatureServer layer: attributes instead of
// properties, and geometry in Web Mercator meters.
type arcgisResponse struct {
	Features []arcgisFeature `json:"features"`
}

type arcgisFeature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   struct {
		X flexFloat `json:"x"`
		Y flexFloat `json:"y"`
	} `json:"geometry"`
}

func normalizeIowa(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var resp arcgisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding Iowa feature server response: %w", err)
	}

	cameras := make([]models.Camera, 0, len(resp.Features))
	for i, f := range resp.Features {
		lat, lon := geo.WebMercatorToLatLon(float64(f.Geometry.X), float64(f.Geometry.Y))

		imageURL := firstString(f.Attributes, "ImageURL")
		videoURL := firstString(f.Attributes, "VideoURL")
		if !validStreamURL(videoURL) {
			videoURL = ""
		}

		cam, ok := makeCamera(src, p, i, "",
			firstString(f.Attributes, "ImageName"),
			lat, lon, imageURL, videoURL, "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

var sourceIowa = Source{
	Name:      "Iowa",
	Provider:  "IADOT",
	State:     "IA",
	URL:       "https://services.arcgis.com/8lRhdTsQyJpO52F1/arcgis/rest/services/Traffic_Cameras_View/FeatureServer/0/query?where=1%3D1&outFields=ImageName%2CImageURL%2CVideoURL&returnGeometry=true&f=json",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeIowa,
}

// New Mexico ships JSONP: a callback wrapper around the JSON payload.
type nmResponse struct {
	CameraInfo []nmCamera `json:"cameraInfo"`
}

type nmCamera struct {
	Lat          flexFloat `json:"lat"`
	Lon          flexFloat `json:"lon"`
	SnapshotFile string    `json:"snapshotFile"`
	Title        string    `json:"title"`
	Name         string    `json:"name"`
}

// stripJSONP unwraps callback(...) padding, returning the inner JSON.
func stripJSONP(body []byte) ([]byte, error) {
	start := bytes.IndexByte(body, '(')
	end := bytes.LastIndexByte(body, ')')
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("payload is not JSONP")
	}
	return body[start+1 : end], nil
}

func normalizeNewMexico(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	inner, err := stripJSONP(body)
	if err != nil {
		return nil, err
	}
	var resp nmResponse
	if err := json.Unmarshal(inner, &resp); err != nil {
		return nil, fmt.Errorf("decoding New Mexico cameras: %w", err)
	}

	cameras := make([]models.Camera, 0, len(resp.CameraInfo))
	for i, cam := range resp.CameraInfo {
		if cam.SnapshotFile == "" {
			continue
		}
		name := cam.Title
		if name == "" {
			name = cam.Name
		}
		c, ok := makeCamera(src, p, i, "", name,
			float64(cam.Lat), float64(cam.Lon), cam.SnapshotFile, "", "", nil)
		if !ok {
			continue
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

var sourceNewMexico = Source{
	Name:      "New Mexico",
	Provider:  "NMDOT",
	State:     "NM",
	URL:       "https://raw.githubusercontent.com/anony121221/maps-data/refs/heads/main/New%20Mexico/newmexico.json",
	Kind:      KindCustom,
	CacheBust: true,
	Hook:      normalizeNewMexico,
}

// Oklahoma models physical poles carrying several cameras; each pole
// becomes one record with a video view per valid stream, positioned at
// the pole's first camera.
type okPole struct {
	ID          flexString `json:"id"`
	Description string     `json:"description"`
	MapCameras  []okCamera `json:"mapCameras"`
}

type okCamera struct {
	Latitude         flexFloat `json:"latitude"`
	Longitude        flexFloat `json:"longitude"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	StreamDictionary *struct {
		StreamSrc string `json:"streamSrc"`
	} `json:"streamDictionary"`
}

func normalizeOklahoma(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var poles []okPole
	if err := json.Unmarshal(body, &poles); err != nil {
		return nil, fmt.Errorf("decoding Oklahoma camera poles: %w", err)
	}

	cameras := make([]models.Camera, 0, len(poles))
	for i, pole := range poles {
		if len(pole.MapCameras) == 0 {
			continue
		}
		var views []models.CameraView
		for _, cam := range pole.MapCameras {
			if cam.StreamDictionary == nil || !validStreamURL(cam.StreamDictionary.StreamSrc) {
				continue
			}
			desc := cam.Location
			if desc == "" {
				desc = cam.Description
			}
			views = append(views, models.CameraView{
				Description: desc,
				VideoURL:    cam.StreamDictionary.StreamSrc,
			})
		}
		if len(views) == 0 {
			continue
		}

		first := pole.MapCameras[0]
		cam, ok := makeCamera(src, p, i, string(pole.ID), pole.Description,
			float64(first.Latitude), float64(first.Longitude), "", "", "", views)
		if !ok {
			continue
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}

// oklahomaFilter is the relation-include filter the CameraPoles API
// expects, pre-encoded into the query string.
var oklahomaFilter = `{"include":[{"relation":"mapCameras","scope":{"include":"streamDictionary"}},{"relation":"cameraLocationLinks","scope":{"include":["linkedCameraPole","cameraPole"]}}]}`

var sourceOklahoma = Source{
	Name:     "Oklahoma",
	Provider: "ODOT",
	State:    "OK",
	URL:      "https://oktraffic.org/api/CameraPoles?filter=" + strings.ReplaceAll(strings.ReplaceAll(oklahomaFilter, "{", "%7B"), "}", "%7D"),
	Kind:     KindCustom,
	Hook:     normalizeOklahoma,
}

// OpenTrafficCamMap is a community dataset keyed state name then city,
// spanning many states in one payload.
type otcCamera struct {
	Latitude    flexFloat `json:"latitude"`
	Lat         flexFloat `json:"lat"`
	Longitude   flexFloat `json:"longitude"`
	Lon         flexFloat `json:"lon"`
	URL         string    `json:"url"`
	Format      string    `json:"format"`
	Description string    `json:"description"`
	Name        string    `json:"name"`
}

func normalizeOpenTrafficCam(src Source, body []byte, p *Pass) ([]models.Camera, error) {
	var states map[string]map[string][]otcCamera
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("decoding OpenTrafficCamMap dataset: %w", err)
	}

	// Sorted iteration keeps snapshot ordering stable between refreshes.
	stateNames := make([]string, 0, len(states))
	for name := range states {
		stateNames = append(stateNames, name)
	}
	sort.Strings(stateNames)

	var cameras []models.Camera
	for _, stateName := range stateNames {
		code := stateCode(stateName)
		cities := states[stateName]
		cityNames := make([]string, 0, len(cities))
		for name := range cities {
			cityNames = append(cityNames, name)
		}
		sort.Strings(cityNames)

		for _, city := range cityNames {
			for i, cam := range cities[city] {
				lat := float64(cam.Latitude)
				if lat == 0 {
					lat = float64(cam.Lat)
				}
				lon := float64(cam.Longitude)
				if lon == 0 {
					lon = float64(cam.Lon)
				}
				if cam.URL == "" {
					continue
				}

				isVideo := cam.Format == "M3U8" || strings.HasSuffix(cam.URL, ".m3u8")
				imageURL, videoURL := cam.URL, ""
				if isVideo {
					imageURL, videoURL = "", cam.URL
				}

				name := cam.Description
				if name == "" {
					name = cam.Name
				}
				if name == "" {
					name = city + " Camera"
				}

				nativeID := code + "-" + city + "-" + strconv.Itoa(i)
				c, ok := makeCamera(src, p, i, nativeID, name, lat, lon, imageURL, videoURL, "", nil)
				if !ok {
					continue
				}
				c.State = code
				cameras = append(cameras, c)
			}
		}
	}
	return cameras, nil
}

var sourceOpenTrafficCam = Source{
	Name:     "OpenTrafficCam",
	Provider: "OpenTrafficCam",
	State:    "US",
	IDPrefix: "OTC",
	URL:      "https://raw.githubusercontent.com/AidanWelch/OpenTrafficCamMap/refs/heads/master/cameras/USA.json",
	Kind:     KindCustom,
	Hook:     normalizeOpenTrafficCam,
}

// DFW 511 needs a server-side OAuth token exchange this deployment does
// not carry credentials for. The descriptor stays registered so the
// source surfaces as skipped instead of silently vanishing.
var sourceDFW = Source{
	Name:           "DFW",
	Provider:       "DFW 511",
	State:          "TX",
	IDPrefix:       "TX-DFW",
	Kind:           KindCustom,
	Disabled:       true,
	DisabledReason: "requires server-side OAuth credential exchange",
}
