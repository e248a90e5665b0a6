// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import "errors"

var (
	// ErrNoIdentity means the connection is anonymous and the request carried
	// no credential that resolves to a user.
	ErrNoIdentity = errors.New("no sender identity")

	// ErrInvalidRequest means the payload failed content or attachment checks.
	ErrInvalidRequest = errors.New("invalid send request")

	// ErrPersistence means the message store rejected the write.
	ErrPersistence = errors.New("message persistence failed")

	// ErrMembershipLookup means group members could not be listed. The send
	// still succeeds with an empty audience.
	ErrMembershipLookup = errors.New("group membership lookup failed")
)
