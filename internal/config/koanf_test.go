// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Fanout.Backend != FanoutNone {
		t.Errorf("Fanout.Backend = %q, want %q", cfg.Fanout.Backend, FanoutNone)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL should be empty by default, got %q", cfg.Database.URL)
	}
	if cfg.WebSocket.PingPeriod() >= cfg.WebSocket.PongWait {
		t.Errorf("PingPeriod %v must be shorter than PongWait %v", cfg.WebSocket.PingPeriod(), cfg.WebSocket.PongWait)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "6001")
	t.Setenv("JWT_SECRET", "an-integration-test-secret-that-is-long-enough")
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("FANOUT_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://chat.example.com")
	t.Setenv("WS_PONG_WAIT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 6001 {
		t.Errorf("Server.Port = %d, want 6001", cfg.Server.Port)
	}
	if cfg.Fanout.Backend != FanoutRedis {
		t.Errorf("Fanout.Backend = %q, want redis", cfg.Fanout.Backend)
	}
	if cfg.WebSocket.PongWait != 30*time.Second {
		t.Errorf("WebSocket.PongWait = %v, want 30s", cfg.WebSocket.PongWait)
	}
	want := []string{"http://localhost:3000", "https://chat.example.com"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 7000
fanout:
  backend: nats
  subject: relay.test
nats:
  embedded: true
  port: -1
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Fanout.Subject != "relay.test" {
		t.Errorf("Fanout.Subject = %q, want relay.test", cfg.Fanout.Subject)
	}
	if !cfg.NATS.Embedded {
		t.Error("NATS.Embedded should be true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		is      error
	}{
		{"defaults", func(c *Config) {}, false, nil},
		{"dev secret in production", func(c *Config) { c.Server.Environment = "production" }, true, ErrInsecureSecret},
		{"short secret in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = "too-short"
		}, true, nil},
		{"empty secret", func(c *Config) { c.Security.JWTSecret = "" }, true, nil},
		{"unknown backend", func(c *Config) { c.Fanout.Backend = "kafka" }, true, nil},
		{"redis without addr", func(c *Config) { c.Fanout.Backend = FanoutRedis }, true, nil},
		{"nats without url", func(c *Config) {
			c.Fanout.Backend = FanoutNATS
			c.NATS.URL = ""
		}, true, nil},
		{"embedded nats without url", func(c *Config) {
			c.Fanout.Backend = FanoutNATS
			c.NATS.URL = ""
			c.NATS.Embedded = true
		}, false, nil},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true, nil},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Validate() error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JWT_SECRET":     "security.jwt_secret",
		"DATABASE_URL":   "database.url",
		"FANOUT_BACKEND": "fanout.backend",
		"REDIS_ADDR":     "redis.addr",
		"HOME":           "",
		"PATH":           "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
