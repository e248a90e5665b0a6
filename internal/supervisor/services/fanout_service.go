// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/chatrelay/internal/fanout"
)

// BridgeRunner is satisfied by *fanout.Bridge.
type BridgeRunner interface {
	Run(ctx context.Context) error
	BackboneName() string
}

// FanoutBridgeService supervises the backbone receive loop. When the
// subscription ends the loop returns an error and suture resubscribes with
// backoff; Dispatch keeps delivering locally in the meantime.
type FanoutBridgeService struct {
	bridge BridgeRunner
	name   string
}

// NewFanoutBridgeService wraps bridge.
func NewFanoutBridgeService(bridge BridgeRunner) *FanoutBridgeService {
	return &FanoutBridgeService{
		bridge: bridge,
		name:   "fanout-bridge-" + bridge.BackboneName(),
	}
}

// Serve implements suture.Service.
func (s *FanoutBridgeService) Serve(ctx context.Context) error {
	err := s.bridge.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

func (s *FanoutBridgeService) String() string {
	return s.name
}

// PresenceRefresher is satisfied by *fanout.RedisPresence.
type PresenceRefresher interface {
	Run(ctx context.Context, users fanout.UserLister) error
}

// PresenceRefreshService keeps this node's presence keys alive in Redis.
type PresenceRefreshService struct {
	presence PresenceRefresher
	users    fanout.UserLister
	name     string
}

// NewPresenceRefreshService wraps presence. users is usually the session registry.
func NewPresenceRefreshService(presence PresenceRefresher, users fanout.UserLister) *PresenceRefreshService {
	return &PresenceRefreshService{
		presence: presence,
		users:    users,
		name:     "presence-refresh",
	}
}

// Serve implements suture.Service.
func (s *PresenceRefreshService) Serve(ctx context.Context) error {
	return s.presence.Run(ctx, s.users)
}

func (s *PresenceRefreshService) String() string {
	return s.name
}
