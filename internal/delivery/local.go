// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"context"
	"sort"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

// Dispatcher delivers a stored message to its audience. Implementations
// handle their own failures; the message is already persisted.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *models.Message, aud Audience)
}

// Pusher writes an encoded frame to one connection.
type Pusher interface {
	// EncodeMessage builds the outbound frame for msg once per delivery.
	EncodeMessage(msg *models.Message) ([]byte, error)
	// Push queues payload on connID without blocking.
	Push(connID string, payload []byte) error
}

// LocalFanout delivers to connections held by this process.
type LocalFanout struct {
	registry session.Registry
	pusher   Pusher
}

// NewLocalFanout creates a LocalFanout.
func NewLocalFanout(registry session.Registry, pusher Pusher) *LocalFanout {
	return &LocalFanout{registry: registry, pusher: pusher}
}

// Targets resolves aud to the local connection ids, sorted.
func (f *LocalFanout) Targets(aud Audience) []string {
	if aud.Mode == ModeBroadcast {
		return f.registry.All()
	}

	seen := make(map[string]struct{})
	var out []string
	for _, userID := range aud.UserIDs {
		for _, connID := range f.registry.FindByUser(userID) {
			if _, ok := seen[connID]; ok {
				continue
			}
			seen[connID] = struct{}{}
			out = append(out, connID)
		}
	}
	sort.Strings(out)
	return out
}

// Deliver pushes msg to every local target and returns the number of
// connections it was queued on.
func (f *LocalFanout) Deliver(ctx context.Context, msg *models.Message, aud Audience) int {
	targets := f.Targets(aud)
	if len(targets) == 0 {
		metrics.RecordFanout(string(aud.Mode), 0, 0)
		return 0
	}

	payload, err := f.pusher.EncodeMessage(msg)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("message_id", msg.ID).Msg("failed to encode message for delivery")
		metrics.RecordFanout(string(aud.Mode), len(targets), len(targets))
		return 0
	}

	failed := 0
	for _, connID := range targets {
		if err := f.pusher.Push(connID, payload); err != nil {
			failed++
			logging.Ctx(ctx).Debug().Err(err).Str("target_conn", connID).Int64("message_id", msg.ID).Msg("push failed")
		}
	}
	metrics.RecordFanout(string(aud.Mode), len(targets), failed)

	logging.Ctx(ctx).Debug().
		Int64("message_id", msg.ID).
		Str("mode", string(aud.Mode)).
		Int("targets", len(targets)).
		Int("failed", failed).
		Msg("message delivered locally")
	return len(targets) - failed
}

// Dispatch implements Dispatcher.
func (f *LocalFanout) Dispatch(ctx context.Context, msg *models.Message, aud Audience) {
	f.Deliver(ctx, msg, aud)
}

var _ Dispatcher = (*LocalFanout)(nil)
