// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/chatrelay/internal/auth"
	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
)

// IdentityResolver resolves a handshake credential.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// Handler upgrades HTTP requests to chat connections.
type Handler struct {
	hub            *Hub
	resolver       IdentityResolver
	sender         MessageSender
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewHandler creates the /ws handler.
func NewHandler(hub *Hub, resolver IdentityResolver, sender MessageSender, security config.SecurityConfig) *Handler {
	h := &Handler{
		hub:            hub,
		resolver:       resolver,
		sender:         sender,
		allowedOrigins: security.CORSOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   hub.cfg.ReadBufferSize,
		WriteBufferSize:  hub.cfg.WriteBufferSize,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// handshakeToken reads the credential from ?token= or the Authorization header.
func handshakeToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	return auth.BearerToken(r.Header.Get("Authorization"))
}

// ServeHTTP authenticates the handshake, upgrades and starts the client.
// A missing or bad credential never rejects the connection; it stays anonymous.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := h.authenticate(r.Context(), handshakeToken(r))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := NewClient(h.hub, conn, h.sender)
	if err := h.hub.register(client, identity); err != nil {
		logging.Warn().Err(err).Msg("WebSocket connection rejected")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	client.Start()
}

func (h *Handler) authenticate(ctx context.Context, token string) models.Identity {
	id, err := h.resolver.Resolve(ctx, token)
	switch {
	case err == nil:
		return id
	case errors.Is(err, auth.ErrNoCredential):
		return models.Identity{}
	default:
		logging.Warn().Err(err).Str("token", logging.SanitizeToken(token)).Msg("handshake credential rejected, continuing anonymously")
		return models.Identity{}
	}
}

// checkOrigin allows configured origins. Requests without an Origin header
// are only accepted when every origin is allowed.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || (origin != "" && allowed == origin) {
			return true
		}
	}
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	logging.Warn().Str("origin", logging.SanitizeHeader(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
