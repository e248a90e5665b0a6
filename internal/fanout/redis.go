// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
)

// NewRedisClient connects to cfg.Addr and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	logging.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Connected to Redis")
	return client, nil
}

// RedisBackbone publishes envelopes over Redis pub/sub channels.
type RedisBackbone struct {
	client *redis.Client
	owned  bool

	mu     sync.Mutex
	closed bool
	subs   []*redis.PubSub
}

// NewRedisBackbone wraps client. When owned is true, Close also closes the client.
func NewRedisBackbone(client *redis.Client, owned bool) *RedisBackbone {
	return &RedisBackbone{client: client, owned: owned}
}

// Name implements Backbone.
func (b *RedisBackbone) Name() string {
	return config.FanoutRedis
}

// Publish implements Backbone.
func (b *RedisBackbone) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBackboneClosed
	}

	if err := b.client.Publish(ctx, subject, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe implements Backbone. It returns only after Redis has confirmed
// the subscription, so nothing published afterwards is missed.
func (b *RedisBackbone) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBackboneClosed
	}
	b.mu.Unlock()

	ps := b.client.Subscribe(ctx, subject)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	in := ps.Channel()
	out := make(chan []byte, forwardBuffer)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close implements Backbone.
func (b *RedisBackbone) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ps := range subs {
		_ = ps.Close()
	}
	if b.owned {
		return b.client.Close()
	}
	return nil
}

var _ Backbone = (*RedisBackbone)(nil)
