// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeMarkersChanged = "markers_changed"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MarkersChangedData is the payload of a markers_changed message.
type MarkersChangedData struct {
	Reason    string `json:"reason"` // created, deleted, replaced
	MarkerID  int64  `json:"marker_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// envelope addresses a message to every client of one user.
type envelope struct {
	userID  int64
	message Message
}

// Hub tracks connected clients and fans messages out per user.
type Hub struct {
	clients    map[*Client]bool
	outbox     chan envelope
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		outbox:     make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). It is a suture service body.
//
// Lifecycle events are drained before messages so a freshly registered
// client never misses a notification queued after its registration.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case env := <-h.outbox:
			h.deliver(env)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().Int64("user_id", client.userID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Dec()
		logging.Info().Int64("user_id", client.userID).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// logGracefulShutdown closes all clients and logs the shutdown. The
// context error is expected here and is not logged as an error.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	h.stopOnce.Do(func() { close(h.done) })

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns clients in id order. Callers hold h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// deliver sends a message to the addressed user's clients in id order.
// A client whose buffer is full is dropped.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients() {
		if client.userID != env.userID {
			continue
		}
		select {
		case client.send <- env.message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		metrics.WSConnections.Dec()
		close(client.send)
		delete(h.clients, client)
	}
}

// closeAllClients closes all connected clients in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
}

// NotifyUser queues a message for every client of userID. It never blocks;
// when the outbox is full the message is dropped.
func (h *Hub) NotifyUser(userID int64, messageType string, data interface{}) {
	select {
	case h.outbox <- envelope{userID: userID, message: Message{Type: messageType, Data: data}}:
	default:
		metrics.WSErrors.WithLabelValues("outbox_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("websocket outbox full, dropping message")
	}
}

// MarkersChanged tells userID's other sessions to reload their markers.
func (h *Hub) MarkersChanged(userID int64, reason string, markerID int64) {
	h.NotifyUser(userID, MessageTypeMarkersChanged, MarkersChangedData{
		Reason:    reason,
		MarkerID:  markerID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
