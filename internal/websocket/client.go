// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package websocket

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
)

// MessageSender handles an inbound send request from a connection.
type MessageSender interface {
	Send(ctx context.Context, connID string, req models.SendRequest) (*models.Message, error)
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	sender   MessageSender
	limiter  *rate.Limiter
	identity models.Identity

	// ctx carries conn_id into every log line of this connection.
	ctx context.Context
}

// NewClient creates a Client with a fresh connection ID.
func NewClient(hub *Hub, conn *websocket.Conn, sender MessageSender) *Client {
	id := uuid.NewString()
	c := &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.cfg.SendQueueSize),
		sender: sender,
		ctx:    logging.ContextWithConnID(context.Background(), id),
	}
	if hub.cfg.MessageRate > 0 {
		burst := hub.cfg.MessageBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(hub.cfg.MessageRate), burst)
	}
	return c
}

// ID returns the connection ID used by the session registry.
func (c *Client) ID() string {
	return c.id
}

// readPump handles inbound frames until the connection fails. Frames from
// one connection are handled one at a time, in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close() // best-effort cleanup
	}()

	pongWait := c.hub.cfg.PongWait
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Ctx(c.ctx).Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Ctx(c.ctx).Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	if c.limiter != nil && !c.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		logging.Ctx(c.ctx).Debug().Msg("inbound frame dropped by rate limiter")
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.WSErrors.WithLabelValues("decode").Inc()
		logging.Ctx(c.ctx).Debug().Err(err).Msg("malformed websocket frame")
		return
	}
	metrics.WSMessagesReceived.WithLabelValues(frame.Type).Inc()

	switch frame.Type {
	case FrameTypePing:
		if err := c.hub.Push(c.id, pongFrame); err != nil {
			logging.Ctx(c.ctx).Debug().Err(err).Msg("failed to queue pong")
		}
	case FrameTypeSendMessage:
		c.handleSend(frame.Data)
	default:
		metrics.WSErrors.WithLabelValues("unknown_type").Inc()
		logging.Ctx(c.ctx).Debug().Str("type", frame.Type).Msg("ignoring unknown frame type")
	}
}

// handleSend never answers the client: failures are logged by the router and
// the sender simply sees no message appear.
func (c *Client) handleSend(data json.RawMessage) {
	var req models.SendRequest
	if len(data) == 0 {
		metrics.WSErrors.WithLabelValues("decode").Inc()
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		metrics.WSErrors.WithLabelValues("decode").Inc()
		logging.Ctx(c.ctx).Debug().Err(err).Msg("malformed send_message payload")
		return
	}

	ctx := logging.ContextWithNewCorrelationID(c.ctx)
	_, _ = c.sender.Send(ctx, c.id, req)
}

// writePump writes queued frames and keepalive pings.
func (c *Client) writePump() {
	writeWait := c.hub.cfg.WriteWait
	ticker := time.NewTicker(c.hub.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Ctx(c.ctx).Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the queue.
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Ctx(c.ctx).Debug().Err(err).Msg("failed to write frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Ctx(c.ctx).Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
