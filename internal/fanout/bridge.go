// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
)

// Envelope is the backbone payload: a stored message plus who it is for.
type Envelope struct {
	ID            string            `json:"id"`
	Origin        string            `json:"origin"`
	CorrelationID string            `json:"correlationId,omitempty"`
	SentAt        time.Time         `json:"sentAt"`
	Message       *models.Message   `json:"message"`
	Audience      delivery.Audience `json:"audience"`
}

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// NodeID identifies this process. Envelopes with this origin are skipped
	// on receive.
	NodeID string
	// Subject carries envelopes on the backbone.
	Subject string

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Bridge is a delivery.Dispatcher that delivers locally and publishes the
// message for every other node, then delivers envelopes received from them.
type Bridge struct {
	cfg      BridgeConfig
	backbone Backbone
	local    *delivery.LocalFanout
	breaker  *gobreaker.CircuitBreaker[interface{}]

	ready      chan struct{}
	readyOnce  sync.Once
	subscribed atomic.Bool
}

// NewBridge creates a Bridge. Run must be started for remote envelopes to be
// delivered on this node.
func NewBridge(backbone Backbone, local *delivery.LocalFanout, cfg BridgeConfig) *Bridge {
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	b := &Bridge{
		cfg:      cfg,
		backbone: backbone,
		local:    local,
		ready:    make(chan struct{}),
	}
	b.breaker = newPublishBreaker("fanout-"+backbone.Name(), cfg)
	return b
}

func newPublishBreaker(name string, cfg BridgeConfig) *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, from.String(), to.String(), int(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Fan-out circuit breaker state changed")
		},
	})
}

// NodeID returns this process's backbone identity.
func (b *Bridge) NodeID() string {
	return b.cfg.NodeID
}

// BackboneName returns the backend name.
func (b *Bridge) BackboneName() string {
	return b.backbone.Name()
}

// BreakerState returns the publish breaker state (closed, half-open, open).
func (b *Bridge) BreakerState() string {
	return b.breaker.State().String()
}

// Subscribed reports whether the receive loop currently holds a subscription.
func (b *Bridge) Subscribed() bool {
	return b.subscribed.Load()
}

// Ready is closed once the first subscription is established.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Dispatch implements delivery.Dispatcher. Local delivery never waits on the
// backbone; a failed publish only costs the other nodes their copy.
func (b *Bridge) Dispatch(ctx context.Context, msg *models.Message, aud delivery.Audience) {
	b.local.Deliver(ctx, msg, aud)

	env := Envelope{
		ID:            uuid.NewString(),
		Origin:        b.cfg.NodeID,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		SentAt:        time.Now().UTC(),
		Message:       msg,
		Audience:      aud,
	}
	if err := b.publish(ctx, &env); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("backbone", b.backbone.Name()).
			Int64("message_id", msg.ID).
			Msg("Fan-out publish failed, remote nodes will not receive message")
	}
}

func (b *Bridge) publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		metrics.RecordBackbonePublish(b.backbone.Name(), "encode_error")
		return fmt.Errorf("encode envelope: %w", err)
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		return nil, b.backbone.Publish(ctx, b.cfg.Subject, data)
	})
	switch {
	case err == nil:
		metrics.RecordBackbonePublish(b.backbone.Name(), "success")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBackbonePublish(b.backbone.Name(), "breaker_open")
	default:
		metrics.RecordBackbonePublish(b.backbone.Name(), "error")
	}
	return err
}

// Run consumes envelopes until ctx is canceled. It returns
// ErrSubscriptionEnded if the backbone drops the subscription first, so a
// supervisor can restart it.
func (b *Bridge) Run(ctx context.Context) error {
	messages, err := b.backbone.Subscribe(ctx, b.cfg.Subject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.cfg.Subject, err)
	}

	b.subscribed.Store(true)
	defer b.subscribed.Store(false)
	b.readyOnce.Do(func() { close(b.ready) })

	logging.Info().
		Str("backbone", b.backbone.Name()).
		Str("subject", b.cfg.Subject).
		Str("node_id", b.cfg.NodeID).
		Msg("Fan-out bridge subscribed")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrSubscriptionEnded
			}
			b.handleEnvelope(ctx, data)
		}
	}
}

func (b *Bridge) handleEnvelope(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.RecordBackboneReceive(b.backbone.Name(), "decode_error")
		logging.Warn().Err(err).Str("backbone", b.backbone.Name()).Msg("failed to unmarshal fan-out envelope")
		return
	}
	if env.Origin == b.cfg.NodeID {
		metrics.RecordBackboneReceive(b.backbone.Name(), "self")
		return
	}
	if env.Message == nil {
		metrics.RecordBackboneReceive(b.backbone.Name(), "decode_error")
		logging.Warn().Str("envelope_id", env.ID).Msg("fan-out envelope without message")
		return
	}

	if env.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, env.CorrelationID)
	}
	b.local.Deliver(ctx, env.Message, env.Audience)
	metrics.RecordBackboneReceive(b.backbone.Name(), "delivered")
}

var _ delivery.Dispatcher = (*Bridge)(nil)
