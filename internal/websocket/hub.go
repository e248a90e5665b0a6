// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

var (
	// ErrClientGone is returned by Push for a connection this hub does not hold.
	ErrClientGone = errors.New("websocket client not connected")

	// ErrSendQueueFull is returned by Push when the client cannot keep up.
	// The client is disconnected.
	ErrSendQueueFull = errors.New("websocket send queue full")

	// ErrHubClosed is returned when registering during shutdown.
	ErrHubClosed = errors.New("websocket hub closed")
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub owns the websocket clients of this process and keeps the session
// registry in step with them. It implements delivery.Pusher.
type Hub struct {
	registry session.Registry
	cfg      config.WebSocketConfig

	mu      sync.RWMutex
	clients map[string]*Client
	closing bool
}

// NewHub creates a Hub that records connections in registry.
func NewHub(registry session.Registry, cfg config.WebSocketConfig) *Hub {
	return &Hub{
		registry: registry,
		cfg:      cfg,
		clients:  make(map[string]*Client),
	}
}

// register adds c and records it in the registry, attaching id when set.
// The client is pushable before the registry returns it as a target.
func (h *Hub) register(c *Client, id models.Identity) error {
	c.identity = id

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.registry.Register(c.id)
	metrics.WSConnections.Inc()

	if !id.IsZero() {
		metrics.WSAuthenticatedConnections.Inc()
		if err := h.registry.AttachIdentity(c.id, id); err != nil {
			logging.Warn().Err(err).Str("conn_id", c.id).Int64("user_id", id.UserID).Msg("failed to attach identity")
		}
	}

	logging.Info().
		Str("conn_id", c.id).
		Int64("user_id", c.identity.UserID).
		Int("total_clients", total).
		Msg("websocket client connected")
	return nil
}

// unregister removes c. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		h.forget(c)
		logging.Info().Str("conn_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// removeLocked deletes c and closes its send queue. Must be called with mu held.
func (h *Hub) removeLocked(c *Client) bool {
	if current, ok := h.clients[c.id]; !ok || current != c {
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	return true
}

// forget drops c from the registry and the gauges. Called once per client,
// after removeLocked, outside the hub lock.
func (h *Hub) forget(c *Client) {
	h.registry.Unregister(c.id)
	metrics.WSConnections.Dec()
	if !c.identity.IsZero() {
		metrics.WSAuthenticatedConnections.Dec()
	}
}

// EncodeMessage implements delivery.Pusher.
func (h *Hub) EncodeMessage(msg *models.Message) ([]byte, error) {
	data, err := MarshalFrame(Frame{Type: FrameTypeReceiveMessage, Data: msg})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", FrameTypeReceiveMessage, err)
	}
	return data, nil
}

// Push implements delivery.Pusher. It never blocks: a client whose queue is
// full is disconnected, as it would otherwise hold up every sender.
func (h *Hub) Push(connID string, payload []byte) error {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if !ok {
		h.mu.Unlock()
		return ErrClientGone
	}

	select {
	case c.send <- payload:
		h.mu.Unlock()
		metrics.WSMessagesSent.Inc()
		return nil
	default:
	}

	h.removeLocked(c)
	h.mu.Unlock()
	h.forget(c)

	metrics.WSErrors.WithLabelValues("queue_full").Inc()
	logging.Warn().Str("conn_id", connID).Msg("send queue full, disconnecting slow client")
	return ErrSendQueueFull
}

// RunWithContext blocks until ctx is canceled, then closes every client.
// It may be called again after returning, as a supervisor restart does.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.closing = false
	h.mu.Unlock()

	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err() is
// not logged as an error: cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes every client in connection ID order and rejects new
// registrations until the next RunWithContext.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, c := range clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.forget(c)
	}
	return len(clients)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ delivery.Pusher = (*Hub)(nil)
