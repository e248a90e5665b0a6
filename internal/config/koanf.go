// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is loaded.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/chatrelay/config.yaml",
	"/etc/chatrelay/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:       DevelopmentJWTSecret,
			TokenTTL:        7 * 24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendQueueSize:   256,
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  64 * 1024,
			MessageRate:     20,
			MessageBurst:    40,
		},
		Delivery: DeliveryConfig{
			MaxContentLength: 4000,
			PersistTimeout:   5 * time.Second,
			LookupTimeout:    3 * time.Second,
		},
		Database: DatabaseConfig{
			URL:         "",
			MaxConns:    10,
			ConnTimeout: 10 * time.Second,
			AutoMigrate: true,
		},
		Fanout: FanoutConfig{
			Backend:            FanoutNone,
			Subject:            "chatrelay.deliveries",
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			Host:          "127.0.0.1",
			Port:          4222,
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Redis: RedisConfig{
			Addr:        "",
			DB:          0,
			PresenceTTL: 2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables (see envTransformFunc)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated env does not leak into config.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"http_host":             "server.host",
		"http_port":             "server.port",
		"port":                  "server.port",
		"http_read_timeout":     "server.read_timeout",
		"http_shutdown_timeout": "server.shutdown_timeout",
		"environment":           "server.environment",

		"jwt_secret":          "security.jwt_secret",
		"jwt_ttl":             "security.token_ttl",
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		"ws_read_buffer":      "websocket.read_buffer_size",
		"ws_write_buffer":     "websocket.write_buffer_size",
		"ws_send_queue":       "websocket.send_queue_size",
		"ws_write_wait":       "websocket.write_wait",
		"ws_pong_wait":        "websocket.pong_wait",
		"ws_max_message_size": "websocket.max_message_size",
		"ws_message_rate":     "websocket.message_rate",
		"ws_message_burst":    "websocket.message_burst",

		"max_content_length": "delivery.max_content_length",
		"persist_timeout":    "delivery.persist_timeout",
		"lookup_timeout":     "delivery.lookup_timeout",

		"database_url":      "database.url",
		"db_max_conns":      "database.max_conns",
		"db_conn_timeout":   "database.conn_timeout",
		"db_auto_migrate":   "database.auto_migrate",
		"db_seed_dev_users": "database.seed_dev_users",

		"fanout_backend":              "fanout.backend",
		"fanout_node_id":              "fanout.node_id",
		"fanout_subject":              "fanout.subject",
		"fanout_breaker_max_failures": "fanout.breaker_max_failures",
		"fanout_breaker_timeout":      "fanout.breaker_timeout",

		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded",
		"nats_host":           "nats.host",
		"nats_port":           "nats.port",
		"nats_max_reconnects": "nats.max_reconnects",
		"nats_reconnect_wait": "nats.reconnect_wait",

		"redis_addr":         "redis.addr",
		"redis_password":     "redis.password",
		"redis_db":           "redis.db",
		"redis_presence_ttl": "redis.presence_ttl",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
