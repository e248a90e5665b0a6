// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package models

import (
	"time"
)

// APIResponse is the envelope used by every JSON endpoint of the gateway.
//
// Status is "success" or "error"; Error is only set for the latter.
//
//	{
//	  "status": "success",
//	  "data": {"userId": 2, "online": true, "connections": 3, "source": "redis"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "request_id": "..."}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status      string  `json:"status"`
	NodeID      string  `json:"node_id"`
	Backbone    string  `json:"backbone"`
	Store       bool    `json:"store_connected"`
	Subscribed  bool    `json:"backbone_subscribed"`
	Breaker     string  `json:"breaker_state,omitempty"`
	Connections int     `json:"connections"`
	Uptime      float64 `json:"uptime_seconds"`
}

// PresenceStatus reports how many live connections a user holds.
type PresenceStatus struct {
	UserID      int64  `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
	Source      string `json:"source"`
}
