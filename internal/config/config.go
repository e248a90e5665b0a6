// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

// Package config loads Chatrelay configuration from defaults, an optional
// YAML file and environment variables (in increasing priority), then
// validates it.
package config

import (
	"fmt"
	"time"
)

// Fan-out backend names.
const (
	// FanoutNone delivers directly to local connections with no backbone.
	FanoutNone = "none"
	// FanoutMemory routes deliveries through an in-process Watermill channel.
	FanoutMemory = "memory"
	// FanoutNATS publishes deliveries over NATS core subjects.
	FanoutNATS = "nats"
	// FanoutRedis publishes deliveries over Redis pub/sub.
	FanoutRedis = "redis"
)

// DevelopmentJWTSecret is the default signing secret. It is only accepted
// when server.environment is development.
const DevelopmentJWTSecret = "supersecretkey"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Delivery  DeliveryConfig  `koanf:"delivery"`
	Database  DatabaseConfig  `koanf:"database"`
	Fanout    FanoutConfig    `koanf:"fanout"`
	NATS      NATSConfig      `koanf:"nats"`
	Redis     RedisConfig     `koanf:"redis"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds credential and HTTP protection settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies bearer credentials (HS256).
	JWTSecret string `koanf:"jwt_secret" validate:"required"`

	// TokenTTL is the lifetime of tokens minted by JWTManager.Generate.
	TokenTTL time.Duration `koanf:"token_ttl" validate:"gt=0"`

	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs and RateLimitWindow bound websocket upgrades per client IP.
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// WebSocketConfig tunes the per-connection pumps.
type WebSocketConfig struct {
	ReadBufferSize  int           `koanf:"read_buffer_size" validate:"gt=0"`
	WriteBufferSize int           `koanf:"write_buffer_size" validate:"gt=0"`
	SendQueueSize   int           `koanf:"send_queue_size" validate:"gt=0"`
	WriteWait       time.Duration `koanf:"write_wait" validate:"gt=0"`
	PongWait        time.Duration `koanf:"pong_wait" validate:"gt=0"`
	MaxMessageSize  int64         `koanf:"max_message_size" validate:"gt=0"`

	// MessageRate and MessageBurst bound inbound frames per connection.
	// A rate of 0 disables the limiter.
	MessageRate  float64 `koanf:"message_rate" validate:"gte=0"`
	MessageBurst int     `koanf:"message_burst" validate:"gte=0"`
}

// PingPeriod must be shorter than PongWait.
func (w WebSocketConfig) PingPeriod() time.Duration {
	return (w.PongWait * 9) / 10
}

// DeliveryConfig bounds the send path.
type DeliveryConfig struct {
	MaxContentLength int           `koanf:"max_content_length" validate:"gt=0"`
	PersistTimeout   time.Duration `koanf:"persist_timeout" validate:"gt=0"`
	LookupTimeout    time.Duration `koanf:"lookup_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the message/user/group store.
type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty selects the in-memory store.
	URL          string        `koanf:"url"`
	MaxConns     int32         `koanf:"max_conns" validate:"gte=0"`
	ConnTimeout  time.Duration `koanf:"conn_timeout" validate:"gt=0"`
	AutoMigrate  bool          `koanf:"auto_migrate"`
	SeedDevUsers bool          `koanf:"seed_dev_users"`
}

// FanoutConfig configures the cross-process delivery backbone.
type FanoutConfig struct {
	Backend string `koanf:"backend" validate:"oneof=none memory nats redis"`

	// NodeID identifies this process on the backbone. Generated when empty.
	NodeID string `koanf:"node_id"`

	// Subject is the topic/channel carrying delivery envelopes.
	Subject string `koanf:"subject" validate:"required"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"gt=0"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// NATSConfig configures the NATS connection and optional embedded server.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port" validate:"gte=-1,lte=65535"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// RedisConfig configures the Redis backbone and presence set.
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db" validate:"gte=0"`
	PresenceTTL time.Duration `koanf:"presence_ttl" validate:"gt=0"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
