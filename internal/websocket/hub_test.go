// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/camgrid/internal/events"
	"github.com/tomtom215/camgrid/internal/models"
)

func startHub(t *testing.T, bus *events.Bus) *Hub {
	t.Helper()
	hub := NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// testClient registers a bare client without a network connection; only
// the send queue matters for hub behavior.
func testClient(hub *Hub) *Client {
	c := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, 256),
	}
	hub.Register <- c
	return c
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := startHub(t, nil)
	a := testClient(hub)
	b := testClient(hub)
	waitForClients(t, hub, 2)

	hub.Broadcast(MessageTypeSnapshotUpdated, map[string]int{"total": 7})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeSnapshotUpdated {
				t.Errorf("Type = %q", msg.Type)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t, nil)
	c := testClient(hub)
	waitForClients(t, hub, 1)

	hub.Unregister <- c
	waitForClients(t, hub, 0)

	select {
	case _, open := <-c.send:
		if open {
			t.Error("send channel should be closed after unregister")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHubRelaysSnapshotEvents(t *testing.T) {
	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })

	hub := startHub(t, bus)
	c := testClient(hub)
	waitForClients(t, hub, 1)

	snap := &models.Snapshot{
		Cameras: []models.Camera{{ID: "CT-1", State: "CT"}},
		Taken:   time.Now().UTC(),
	}
	if err := bus.PublishSnapshot(snap); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Type != MessageTypeSnapshotUpdated {
			t.Errorf("Type = %q", msg.Type)
		}
		summary, ok := msg.Data.(events.RefreshSummary)
		if !ok {
			t.Fatalf("Data has type %T", msg.Data)
		}
		if summary.Total != 1 {
			t.Errorf("Total = %d", summary.Total)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot event was not relayed")
	}
}

func TestHubDropsStalledClients(t *testing.T) {
	hub := startHub(t, nil)
	c := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message), // unbuffered: every send fails
	}
	hub.Register <- c
	waitForClients(t, hub, 1)

	hub.Broadcast(MessageTypeSnapshotUpdated, nil)
	waitForClients(t, hub, 0)
}
