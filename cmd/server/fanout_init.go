// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/fanout"
	"github.com/tomtom215/chatrelay/internal/logging"
)

// fanoutComponents holds the delivery path selected by fanout.backend.
type fanoutComponents struct {
	nodeID     string
	dispatcher delivery.Dispatcher
	bridge     *fanout.Bridge
	backbone   fanout.Backbone
	natsServer *fanout.EmbeddedServer
	redis      *redis.Client
	presence   *fanout.RedisPresence
}

// initFanout never fails: a backbone that cannot be reached is logged and
// the node falls back to local-only delivery.
func initFanout(ctx context.Context, cfg *config.Config, local *delivery.LocalFanout) *fanoutComponents {
	fc := &fanoutComponents{nodeID: cfg.Fanout.NodeID, dispatcher: local}
	if fc.nodeID == "" {
		fc.nodeID = uuid.NewString()
	}

	if cfg.Redis.Enabled() {
		client, err := fanout.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, presence and redis backbone disabled")
		} else {
			fc.redis = client
			fc.presence = fanout.NewRedisPresence(client, fc.nodeID, cfg.Redis.PresenceTTL)
		}
	}

	backbone, err := fc.openBackbone(cfg)
	if err != nil {
		logging.Warn().Err(err).Str("backend", cfg.Fanout.Backend).Msg("Fan-out backbone unavailable, delivering to local connections only")
		return fc
	}
	if backbone == nil {
		logging.Info().Msg("Fan-out backbone disabled, delivering to local connections only")
		return fc
	}

	fc.backbone = backbone
	fc.bridge = fanout.NewBridge(backbone, local, fanout.BridgeConfig{
		NodeID:             fc.nodeID,
		Subject:            cfg.Fanout.Subject,
		BreakerMaxFailures: cfg.Fanout.BreakerMaxFailures,
		BreakerTimeout:     cfg.Fanout.BreakerTimeout,
	})
	fc.dispatcher = fc.bridge
	logging.Info().Str("backend", backbone.Name()).Str("subject", cfg.Fanout.Subject).Msg("Fan-out backbone ready")
	return fc
}

func (fc *fanoutComponents) openBackbone(cfg *config.Config) (fanout.Backbone, error) {
	switch cfg.Fanout.Backend {
	case config.FanoutMemory:
		return fanout.NewMemoryBackbone(), nil

	case config.FanoutNATS:
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			srv, err := fanout.NewEmbeddedServer(cfg.NATS)
			if err != nil {
				return nil, fmt.Errorf("start embedded nats: %w", err)
			}
			fc.natsServer = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}
		if url == "" {
			return nil, errors.New("nats backend needs nats.url or nats.embedded")
		}
		return fanout.NewNATSBackbone(url, cfg.NATS)

	case config.FanoutRedis:
		if fc.redis == nil {
			return nil, errors.New("redis backend needs a reachable redis.addr")
		}
		// fc owns the client; presence shares it.
		return fanout.NewRedisBackbone(fc.redis, false), nil

	default:
		return nil, nil
	}
}

// Close releases the backbone, the embedded server and the Redis client,
// in that order.
func (fc *fanoutComponents) Close(ctx context.Context) {
	if fc.backbone != nil {
		if err := fc.backbone.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing fan-out backbone")
		}
	}
	if fc.natsServer != nil {
		if err := fc.natsServer.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server did not stop cleanly")
		}
	}
	if fc.redis != nil {
		if err := fc.redis.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing Redis client")
		}
	}
}
