// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package websocket is the client-facing chat transport.

It uses gorilla/websocket with the hub/client layout:

	┌──────────────┐   Push(connID)   ┌──────────┐
	│ delivery.*   │ ───────────────► │   Hub    │ ── session.Registry
	└──────────────┘                  └────┬─────┘
	                                       │
	                        ┌──────────────┼──────────────┐
	                        │              │              │
	                     Client         Client         Client

Each client has two goroutines:
  - readPump: reads frames, answers pings, hands send_message to the router
  - writePump: writes queued frames and keepalive pings

Handshake:

The credential is read from the token query parameter or an
Authorization: Bearer header. A missing, invalid or unknown credential
never rejects the connection; it stays anonymous and may still send with a
per-message token.

Frames:

	{"type":"send_message","data":{"token":"...","content":"hi","recipientId":2}}
	{"type":"receive_message","data":{"id":1,"authorId":1,"author":{...},...}}
	{"type":"ping"}  ->  {"type":"pong"}

Failed sends are not answered; the router logs them and the sender sees no
message appear.

Slow clients:

Push never blocks. A client whose send queue is full is disconnected and
removed from the registry.
*/
package websocket
