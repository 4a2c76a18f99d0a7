// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package websocket pushes refresh announcements to connected map clients
// so they can re-query the camera API instead of polling it.
package websocket

import (
	"context"
	"sort"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/camgrid/internal/events"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/metrics"
)

// Message types for hub-to-client communication.
const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeSnapshotUpdated = "snapshot_updated"
)

// Message is the envelope for all WebSocket traffic.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	bus *events.Bus
}

// NewHub creates a hub. bus may be nil; the hub then only relays explicit
// Broadcast calls.
func NewHub(bus *events.Bus) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		bus:        bus,
	}
}

// Serve runs the hub under supervision: it relays bus events and client
// lifecycle until the context is cancelled, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	if h.bus != nil {
		ch, err := h.bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		go h.relay(ch)
	}

	for {
		select {
		case <-ctx.Done():
			closed := h.closeAllClients()
			logging.Info().Int("clients_closed", closed).Msg("WebSocket hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnectionsActive.Set(float64(total))
			logging.Info().Int("total_clients", total).Msg("WebSocket client connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnectionsActive.Set(float64(total))
			logging.Info().Int("total_clients", total).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) String() string { return "websocket.Hub" }

// relay decodes snapshot.updated events into client messages.
func (h *Hub) relay(ch <-chan *watermill.Message) {
	for msg := range ch {
		var summary events.RefreshSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			logging.Warn().Err(err).Msg("Dropping undecodable snapshot event")
			msg.Ack()
			continue
		}
		msg.Ack()
		h.Broadcast(MessageTypeSnapshotUpdated, summary)
	}
}

// Broadcast queues a message for every connected client. Messages are
// dropped rather than blocking the caller when the queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast channel full, dropping message")
	}
}

// broadcastToClients delivers one message to every client in ID order. A
// client whose queue is full is disconnected; a stalled reader must not
// hold the hub's buffer hostage.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	return len(clients)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
