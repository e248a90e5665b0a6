// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package metrics provides Prometheus metrics for the delivery gateway.

Metrics are registered with the default registry through promauto and
exposed at /metrics.

# Available Metrics

HTTP:
  - api_requests_total, api_request_duration_seconds, api_active_requests

WebSocket:
  - websocket_connections, websocket_authenticated_connections
  - websocket_messages_sent_total, websocket_messages_received_total{type}
  - websocket_errors_total{error_type}

Delivery:
  - auth_credential_resolutions_total{result}
  - delivery_sends_total{mode,result}
  - delivery_fanout_targets{mode}
  - delivery_pushes_total{result}
  - delivery_persist_duration_seconds

Fan-out:
  - fanout_envelopes_published_total{backend,result}
  - fanout_envelopes_received_total{backend,result}
  - presence_updates_total{op,result}
  - circuit_breaker_state{name}, circuit_breaker_state_transitions_total
*/
package metrics
