// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"strings"

	"github.com/tomtom215/camgrid/internal/models"
)

// FilterAll is the state filter sentinel matching every record.
const FilterAll = "all"

// FilterOTM selects community-sourced records regardless of state.
const FilterOTM = "OTM"

// Filter returns the cameras matching a case-insensitive name search and
// a state filter. An empty search matches everything; FilterAll disables
// the state filter; FilterOTM matches on provider instead of state. The
// input is never mutated and relative order is preserved, so filtering an
// already-filtered slice with the same arguments is a no-op.
func Filter(cameras []models.Camera, searchTerm, stateFilter string) []models.Camera {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" && (stateFilter == "" || stateFilter == FilterAll) {
		return cameras
	}

	out := make([]models.Camera, 0, len(cameras))
	for _, cam := range cameras {
		if term != "" && !strings.Contains(strings.ToLower(cam.Name), term) {
			continue
		}
		switch {
		case stateFilter == "" || stateFilter == FilterAll:
		case stateFilter == FilterOTM:
			if cam.Provider != "OpenTrafficCam" {
				continue
			}
		default:
			if cam.State != stateFilter {
				continue
			}
		}
		out = append(out, cam)
	}
	return out
}
