// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

const (
	presenceKeyPrefix = "chatrelay:presence:"
	presenceOpTimeout = 2 * time.Second
)

// UserLister lists the users with at least one live local connection.
type UserLister interface {
	Users() []int64
}

// RedisPresence mirrors identity changes into one Redis set per user,
// holding "<node>/<conn>" members. Keys expire after ttl unless refreshed,
// so a crashed node's entries age out.
type RedisPresence struct {
	client *redis.Client
	nodeID string
	ttl    time.Duration
}

// NewRedisPresence creates a RedisPresence.
func NewRedisPresence(client *redis.Client, nodeID string, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, nodeID: nodeID, ttl: ttl}
}

func presenceKey(userID int64) string {
	return presenceKeyPrefix + strconv.FormatInt(userID, 10)
}

func (p *RedisPresence) member(connID string) string {
	return p.nodeID + "/" + connID
}

// IdentityAttached implements session.Observer.
func (p *RedisPresence) IdentityAttached(connID string, id models.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()

	key := presenceKey(id.UserID)
	pipe := p.client.TxPipeline()
	pipe.SAdd(ctx, key, p.member(connID))
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	metrics.RecordPresenceUpdate("attach", err)
	if err != nil {
		logging.Warn().Err(err).Str("conn_id", connID).Int64("user_id", id.UserID).Msg("presence attach failed")
	}
}

// ConnectionClosed implements session.Observer. Anonymous connections were
// never added and are ignored.
func (p *RedisPresence) ConnectionClosed(connID string, id models.Identity) {
	if id.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceOpTimeout)
	defer cancel()

	err := p.client.SRem(ctx, presenceKey(id.UserID), p.member(connID)).Err()
	metrics.RecordPresenceUpdate("detach", err)
	if err != nil {
		logging.Warn().Err(err).Str("conn_id", connID).Int64("user_id", id.UserID).Msg("presence detach failed")
	}
}

// Connections returns the cluster-wide connection count of userID.
func (p *RedisPresence) Connections(ctx context.Context, userID int64) (int, error) {
	n, err := p.client.SCard(ctx, presenceKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("presence lookup for user %d: %w", userID, err)
	}
	return int(n), nil
}

// Refresh extends the TTL of every user with a live local connection.
func (p *RedisPresence) Refresh(ctx context.Context, users UserLister) error {
	ids := users.Users()
	if len(ids) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, id := range ids {
		pipe.Expire(ctx, presenceKey(id), p.ttl)
	}
	_, err := pipe.Exec(ctx)
	metrics.RecordPresenceUpdate("refresh", err)
	if err != nil {
		return fmt.Errorf("refresh presence for %d users: %w", len(ids), err)
	}
	return nil
}

// Run refreshes presence at half the TTL until ctx is canceled.
func (p *RedisPresence) Run(ctx context.Context, users UserLister) error {
	ticker := time.NewTicker(p.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx, users); err != nil {
				logging.Warn().Err(err).Msg("presence refresh failed")
			}
		}
	}
}

var _ session.Observer = (*RedisPresence)(nil)
