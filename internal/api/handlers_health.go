// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/models"
)

const readinessTimeout = 2 * time.Second

// HealthLive returns 200 while the process is alive, regardless of dependencies.
func (router *Router) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(router.startTime).Seconds(),
	})
}

// HealthReady returns 200 when the store answers and the backbone
// subscription is live. An open breaker reports "degraded" but stays ready:
// local delivery still works.
func (router *Router) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	health := models.HealthStatus{
		NodeID:     router.deps.NodeID,
		Backbone:   config.FanoutNone,
		Subscribed: true,
		Uptime:     time.Since(router.startTime).Seconds(),
	}
	if router.deps.Registry != nil {
		health.Connections = router.deps.Registry.Count()
	}

	if router.deps.Store != nil {
		if err := router.deps.Store.Ping(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness: store ping failed")
		} else {
			health.Store = true
		}
	}

	if f := router.deps.Fanout; f != nil {
		health.NodeID = f.NodeID()
		health.Backbone = f.BackboneName()
		health.Subscribed = f.Subscribed()
		health.Breaker = f.BreakerState()
	}

	ready := health.Store && health.Subscribed
	switch {
	case !ready:
		health.Status = "unavailable"
	case health.Breaker != "" && health.Breaker != "closed":
		health.Status = "degraded"
	default:
		health.Status = "healthy"
	}

	if !ready {
		respondJSON(w, r, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   health,
			Error:  &models.APIError{Code: ErrCodeServiceUnavailable, Message: "service not ready"},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, health)
}
