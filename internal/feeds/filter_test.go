// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package feeds

import (
	"reflect"
	"testing"

	"github.com/tomtom215/camgrid/internal/models"
)

func filterFixture() []models.Camera {
	return []models.Camera{
		{ID: "CT-1", Name: "I-95 at Exit 2", State: "CT", Provider: "CT Travel Smart"},
		{ID: "CT-2", Name: "Route 9 North", State: "CT", Provider: "CT Travel Smart"},
		{ID: "OK-1", Name: "I-44 & May Ave", State: "OK", Provider: "ODOT"},
		{ID: "OTC-OH-1", Name: "Broad St", State: "OH", Provider: "OpenTrafficCam"},
		{ID: "OTC-TX-1", Name: "I-35 at Exit 4", State: "TX", Provider: "OpenTrafficCam"},
	}
}

func TestFilter(t *testing.T) {
	cams := filterFixture()

	tests := []struct {
		name   string
		search string
		state  string
		want   []string
	}{
		{"no filters", "", "all", []string{"CT-1", "CT-2", "OK-1", "OTC-OH-1", "OTC-TX-1"}},
		{"empty state means all", "", "", []string{"CT-1", "CT-2", "OK-1", "OTC-OH-1", "OTC-TX-1"}},
		{"state only", "", "CT", []string{"CT-1", "CT-2"}},
		{"search only", "exit", "all", []string{"CT-1", "OTC-TX-1"}},
		{"search is case insensitive", "EXIT", "all", []string{"CT-1", "OTC-TX-1"}},
		{"search and state", "exit", "CT", []string{"CT-1"}},
		{"community filter crosses states", "", "OTM", []string{"OTC-OH-1", "OTC-TX-1"}},
		{"community filter with search", "broad", "OTM", []string{"OTC-OH-1"}},
		{"no matches", "zzz", "all", []string{}},
		{"surrounding whitespace ignored", "  exit  ", "CT", []string{"CT-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(cams, tt.search, tt.state)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("Filter(%q, %q) = %v, want %v", tt.search, tt.state, ids, tt.want)
			}
		})
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	cams := filterFixture()
	once := Filter(cams, "exit", "all")
	twice := Filter(once, "exit", "all")
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second application changed the result: %v vs %v", once, twice)
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	cams := filterFixture()
	before := make([]models.Camera, len(cams))
	copy(before, cams)
	Filter(cams, "exit", "CT")
	if !reflect.DeepEqual(cams, before) {
		t.Error("input slice was mutated")
	}
}
