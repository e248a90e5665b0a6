// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package fanout spreads deliveries across every Chatrelay process.

A single process only knows the connections it holds. When several
processes share a backbone, the Bridge publishes each routed message as an
Envelope and every process applies the audience to its own registry:

	node A: Router.Send -> Bridge.Dispatch -> local delivery on A
	                                       -> Backbone.Publish(envelope)
	node B: Bridge.Run  <- Backbone.Subscribe -> local delivery on B

Backbones:

  - memory: Watermill gochannel, in-process only (tests, single node)
  - nats:   Watermill NATS core subjects, optionally with an embedded server
  - redis:  Redis pub/sub channels

Every process receives every envelope; there are no queue groups. A node
skips envelopes it published itself because it already delivered them.

If a publish fails, or the circuit breaker is open, the message has still
been delivered locally and the failure is only logged. Without a backbone
the process runs as a single node, which is the documented fallback rather
than an error.

Presence is tracked separately by RedisPresence, which mirrors identity
attach and detach events into per-user Redis sets so any node can answer
"is user X online".
*/
package fanout
