// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package supervisor runs the gateway's long-lived services under suture v4.

	RootSupervisor ("chatrelay")
	├── FanoutSupervisor ("fanout-layer")
	│   ├── FanoutBridgeService     (backend != none)
	│   └── PresenceRefreshService  (redis presence)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures on its own. A backbone subscription that ends is
restarted with backoff while clients on this node keep chatting.

Supervisor events are logged through sutureslog into the zerolog-backed
slog handler from the logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
