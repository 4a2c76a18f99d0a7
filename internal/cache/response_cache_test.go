// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package cache

import (
	"net/http"
	"testing"
	"time"
)

func testResponse(body string) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"image/jpeg"}},
		Body:   []byte(body),
	}
}

func TestAddGet(t *testing.T) {
	c := NewResponseCache(4, time.Minute, 1<<20)

	c.Add("a", testResponse("one"))
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if string(got.Body) != "one" {
		t.Errorf("body = %q, want %q", got.Body, "one")
	}
	if got.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", got.Status)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestExpiration(t *testing.T) {
	c := NewResponseCache(4, 10*time.Millisecond, 1<<20)

	c.Add("a", testResponse("one"))
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after lazy expiration", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewResponseCache(2, time.Minute, 1<<20)

	c.Add("a", testResponse("1"))
	c.Add("b", testResponse("2"))
	c.Get("a") // a is now most recently used
	c.Add("c", testResponse("3"))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestOversizeBodySkipped(t *testing.T) {
	c := NewResponseCache(4, time.Minute, 8)

	c.Add("big", testResponse("this body exceeds eight bytes"))
	if _, ok := c.Get("big"); ok {
		t.Error("oversize body should not be cached")
	}
}

func TestCleanupExpired(t *testing.T) {
	c := NewResponseCache(8, 10*time.Millisecond, 1<<20)

	c.Add("a", testResponse("1"))
	c.Add("b", testResponse("2"))
	time.Sleep(25 * time.Millisecond)
	c.Add("c", testResponse("3"))

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := NewResponseCache(4, time.Minute, 1<<20)

	c.Add("a", testResponse("1"))
	c.Get("a")
	c.Get("a")
	c.Get("nope")

	hits, misses, size := c.Stats()
	if hits != 2 || misses != 1 || size != 1 {
		t.Errorf("Stats() = (%d, %d, %d), want (2, 1, 1)", hits, misses, size)
	}
}

func TestCloneHeaderIsolation(t *testing.T) {
	c := NewResponseCache(4, time.Minute, 1<<20)
	c.Add("a", testResponse("1"))

	got, _ := c.Get("a")
	clone := got.Clone()
	clone.Header.Set("X-Mutated", "yes")

	again, _ := c.Get("a")
	if again.Header.Get("X-Mutated") != "" {
		t.Error("mutating a clone's headers must not affect the cached entry")
	}
}
