// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package delivery implements the send path: resolve the sender, persist the
message, compute its audience and hand it to a Dispatcher.

# Addressing

Every stored message is routed by exactly one branch, evaluated in order:

  - group:     groupId set; audience is the group's member ids
  - direct:    recipientId set; audience is the sender and the recipient
  - broadcast: neither set; audience is every live connection

The Audience is resolved to connection ids by LocalFanout at delivery time,
so a connection that disconnects while a send is in flight is simply absent
from the target set.

# Failure Semantics

  - no identity and no usable per-message credential: ErrNoIdentity, nothing stored
  - invalid content or attachment: ErrInvalidRequest, nothing stored
  - store failure: ErrPersistence, nothing delivered
  - membership lookup failure: logged as ErrMembershipLookup, delivered to nobody
  - a push failure on one connection never stops the others
*/
package delivery
