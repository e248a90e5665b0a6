// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package api is the HTTP surface of the gateway, routed with chi.

Routes:

	GET /ws                       websocket upgrade (per-IP rate limited)
	GET /health/live              liveness
	GET /health/ready             store and backbone readiness
	GET /metrics                  prometheus exposition
	GET /api/v1/presence/{userID} connection count for a user

Global middleware: request ID (copied into the logging correlation ID),
RealIP, Recoverer, go-chi/cors and request metrics labelled by route pattern.

JSON responses use models.APIResponse.
*/
package api
