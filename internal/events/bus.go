// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package events is the in-process pub/sub layer. The aggregator publishes
// a summary after each refresh; the WebSocket hub subscribes and fans it
// out to connected clients.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/camgrid/internal/models"
)

// TopicSnapshotUpdated carries a RefreshSummary per completed refresh.
const TopicSnapshotUpdated = "snapshot.updated"

// RefreshSummary is the wire payload for a snapshot.updated event. It
// deliberately omits the camera list; subscribers re-query the API.
type RefreshSummary struct {
	Taken    time.Time             `json:"taken"`
	Total    int                   `json:"total"`
	ByState  map[string]int        `json:"byState"`
	Statuses []models.SourceStatus `json:"statuses"`
}

// NewRefreshSummary reduces a snapshot to its announcement form.
func NewRefreshSummary(snap *models.Snapshot) RefreshSummary {
	byState := make(map[string]int)
	for _, cam := range snap.Cameras {
		byState[cam.State]++
	}
	return RefreshSummary{
		Taken:    snap.Taken,
		Total:    len(snap.Cameras),
		ByState:  byState,
		Statuses: snap.Statuses,
	}
}

// Bus wraps a watermill gochannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus builds the in-process bus. Unbuffered channels would stall the
// refresh loop behind a slow subscriber, so a small buffer absorbs bursts.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, watermillLogger{}),
	}
}

// PublishSnapshot announces a completed refresh.
func (b *Bus) PublishSnapshot(snap *models.Snapshot) error {
	payload, err := json.Marshal(NewRefreshSummary(snap))
	if err != nil {
		return fmt.Errorf("marshal refresh summary: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.pubsub.Publish(TopicSnapshotUpdated, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicSnapshotUpdated, err)
	}
	return nil
}

// Subscribe returns a channel of snapshot.updated messages. The channel
// closes when the context is cancelled.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, TopicSnapshotUpdated)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicSnapshotUpdated, err)
	}
	return ch, nil
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

var _ watermill.LoggerAdapter = watermillLogger{}
