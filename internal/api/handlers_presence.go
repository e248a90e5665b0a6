// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/models"
)

// Presence sources
const (
	PresenceSourceRedis = "redis"
	PresenceSourceLocal = "local"
)

// Presence reports how many live authenticated connections a user holds.
// With Redis presence configured the count is cluster-wide; otherwise, or
// when Redis fails, only this node's registry is consulted.
func (router *Router) Presence(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "userID must be a positive integer")
		return
	}

	status := models.PresenceStatus{UserID: userID, Source: PresenceSourceLocal}

	counted := false
	if router.deps.Presence != nil {
		n, err := router.deps.Presence.Connections(r.Context(), userID)
		if err == nil {
			status.Connections = n
			status.Source = PresenceSourceRedis
			counted = true
		} else {
			logging.Ctx(r.Context()).Warn().Err(err).Int64("user_id", userID).Msg("Presence lookup failed, using local registry")
		}
	}
	if !counted && router.deps.Registry != nil {
		status.Connections = len(router.deps.Registry.FindByUser(userID))
	}

	status.Online = status.Connections > 0
	respondSuccess(w, r, http.StatusOK, status)
}
