// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package dedupe

import (
	"sync"

	"github.com/tomtom215/camgrid/internal/geo"
)

// Index is a spatial dedup index over quantized coordinate cells.
// The first claimant of a cell wins; later claims are rejected. A fresh
// Index is created per refresh cycle and handed to every adapter, so dedup
// priority is a property of admission order, not of any global state.
type Index struct {
	mu    sync.Mutex
	cells map[string]struct{}
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{cells: make(map[string]struct{})}
}

// Claim attempts to take the quantized cell for (lat, lon). Returns true if
// the cell was free, false if another camera already holds it.
func (idx *Index) Claim(lat, lon float64) bool {
	key := geo.QuantizeKey(lat, lon)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, taken := idx.cells[key]; taken {
		return false
	}
	idx.cells[key] = struct{}{}
	return true
}

// Len returns the number of claimed cells.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.cells)
}
