// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package services adapts gateway components to suture.Service.

Each wrapper translates a lifecycle (ListenAndServe/Shutdown, RunWithContext,
Run) into Serve(ctx) and names itself through fmt.Stringer for supervisor
logs. Each wrapper depends on a small interface satisfied by the component.

  - HTTPServerService: *http.Server with graceful Shutdown
  - WebSocketHubService: websocket.Hub
  - FanoutBridgeService: fanout.Bridge receive loop
  - PresenceRefreshService: fanout.RedisPresence TTL refresh
*/
package services
