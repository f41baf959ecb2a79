// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/models"
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
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeStatsUpdate = "stats_update"

	// Intake channel, server to browser. Map commands use the
	// mapview command names.
	MessageTypeState      = "state"
	MessageTypeWatchStart = "watch_start"
	MessageTypeWatchStop  = "watch_stop"
	MessageTypeError      = "error"

	// Intake channel, browser to server.
	MessageTypeLocate        = "locate"
	MessageTypeStopLocating  = "stop_locating"
	MessageTypeCenter        = "center"
	MessageTypePosition      = "position"
	MessageTypePositionError = "position_error"
	MessageTypeDragEnd       = "drag_end"
	MessageTypeField         = "field"
)

// Channel labels for metrics.
const (
	channelStats  = "stats"
	channelIntake = "intake"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of stats clients and broadcasts messages to them.
// The most recent stats_update is replayed to clients as they register so
// the home page never waits a full poll interval for numbers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	last *Message
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). It is restartable under suture.
//
// Selection is prioritized: shutdown first, then client lifecycle, then
// broadcasts. A client registered before a broadcast is queued always
// receives it.
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
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	last := h.last
	total := len(h.clients)
	h.mu.Unlock()

	if last != nil {
		select {
		case client.send <- *last:
		default:
		}
	}
	metrics.WSConnections.WithLabelValues(channelStats).Set(float64(total))
	logging.Debug().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.WithLabelValues(channelStats).Set(float64(total))
	logging.Debug().Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err()
// is not logged as an error; cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClientsLocked returns clients in id order so delivery order is
// reproducible.
func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients sends a message to every client. Clients whose send
// buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if message.Type == MessageTypeStatsUpdate {
		m := message
		h.last = &m
	}

	var toRemove []*Client
	for _, client := range h.sortedClientsLocked() {
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
	if len(toRemove) > 0 {
		metrics.WSErrors.WithLabelValues("slow_client").Add(float64(len(toRemove)))
		metrics.WSConnections.WithLabelValues(channelStats).Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClientsLocked() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.WithLabelValues(channelStats).Set(0)
}

// BroadcastJSON queues a message for all clients. It never blocks.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// StatsUpdateData represents data sent with stats_update message
type StatsUpdateData struct {
	Timestamp string `json:"timestamp"`
	models.Stats
}

// BroadcastStatsUpdate sends the dashboard counters to all clients.
func (h *Hub) BroadcastStatsUpdate(stats models.Stats, at time.Time) {
	h.BroadcastJSON(MessageTypeStatsUpdate, StatsUpdateData{
		Timestamp: at.UTC().Format(time.RFC3339),
		Stats:     stats,
	})
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
