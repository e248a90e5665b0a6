// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package main is the entry point for the Chatrelay gateway.

Chatrelay accepts websocket chat connections, authenticates them with bearer
credentials, persists each sent message and delivers it to every live
connection of the audience: one recipient, the members of a group, or
everybody. Several gateway processes share a fan-out backbone so a message
sent on one node reaches connections held by the others.

# Application Architecture

	RootSupervisor ("chatrelay")
	├── FanoutSupervisor ("fanout-layer")
	│   ├── Fan-out bridge receive loop (backend != none)
	│   └── Presence refresh (when redis is configured)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket Hub
	└── APISupervisor ("api-layer")
	    └── HTTP Server (/ws, /health/*, /metrics, /api/v1/presence/{userID})

Initialization order:

 1. Configuration: koanf (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Store: Postgres (pgx) when DATABASE_URL is set, otherwise in memory
 4. Authentication: HS256 JWT verifier and profile lookup
 5. Session registry and WebSocket hub
 6. Fan-out: memory, NATS (optionally embedded) or Redis backbone
 7. Supervisor tree and HTTP server

A fan-out backbone that cannot be reached at startup is logged and the node
runs with local delivery only.

# Configuration

	PORT=5000
	ENVIRONMENT=development      # development, production, test
	JWT_SECRET=<secret>          # supersecretkey is accepted in development only
	DATABASE_URL=postgres://...  # empty: in-memory store
	DB_AUTO_MIGRATE=true
	FANOUT_BACKEND=nats          # none, memory, nats, redis
	NATS_EMBEDDED=true
	REDIS_ADDR=localhost:6379    # enables presence
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP listener drains, the hub
closes every client, the receive loop stops, and then the backbone, embedded
NATS server, Redis client and store are closed.
*/
package main
