// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/models"
)

func TestPublishSnapshotReachesSubscriber(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	snap := &models.Snapshot{
		Cameras: []models.Camera{
			{ID: "CT-1", State: "CT"},
			{ID: "CT-2", State: "CT"},
			{ID: "OK-1", State: "OK"},
		},
		Statuses: []models.SourceStatus{{Source: "Connecticut", State: "ok", Count: 2}},
		Taken:    time.Now().UTC(),
	}
	if err := bus.PublishSnapshot(snap); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}

	select {
	case msg := <-ch:
		var summary RefreshSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		msg.Ack()
		if summary.Total != 3 {
			t.Errorf("Total = %d, want 3", summary.Total)
		}
		if summary.ByState["CT"] != 2 || summary.ByState["OK"] != 1 {
			t.Errorf("ByState = %v", summary.ByState)
		}
		if len(summary.Statuses) != 1 {
			t.Errorf("Statuses = %v", summary.Statuses)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSubscribeChannelClosesOnCancel(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
}
