// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/session"
)

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FanoutStatus is the view of the cross-node bridge used by readiness.
type FanoutStatus interface {
	NodeID() string
	BackboneName() string
	BreakerState() string
	Subscribed() bool
}

// PresenceCounter answers cluster-wide connection counts.
type PresenceCounter interface {
	Connections(ctx context.Context, userID int64) (int, error)
}

// Dependencies wires the router. Fanout and Presence are optional.
type Dependencies struct {
	WebSocket http.Handler
	Store     Pinger
	Registry  session.Registry
	Fanout    FanoutStatus
	Presence  PresenceCounter
	Security  config.SecurityConfig

	// NodeID is reported by readiness when Fanout is nil.
	NodeID string
}

// Router holds handler dependencies.
type Router struct {
	deps          Dependencies
	chiMiddleware *ChiMiddleware
	startTime     time.Time
}

// NewRouter creates a router.
func NewRouter(deps Dependencies) *Router {
	return &Router{
		deps:          deps,
		chiMiddleware: NewChiMiddleware(NewChiMiddlewareConfig(deps.Security)),
		startTime:     time.Now(),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(PrometheusMetrics)

	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.HealthLive)
		r.Get("/ready", router.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.deps.WebSocket.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitAPI))
		r.Use(APISecurityHeaders())
		r.Get("/presence/{userID}", router.Presence)
	})

	return r
}
