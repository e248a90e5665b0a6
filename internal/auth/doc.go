// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package auth turns a bearer credential into a chat identity.

  - JWTManager verifies HS256 tokens and extracts the numeric subject
    (the id claim, accepted as a JSON number or a numeric string).
  - Authenticator runs the verifier, loads the subject's profile from the
    user store and returns a models.Identity.
  - BearerToken strips the "Bearer " prefix from an Authorization header.

Failures are classified for callers and metrics:

	ErrNoCredential       empty token
	ErrInvalidCredential  bad signature, malformed or expired token
	ErrUnknownSubject     valid token, but the profile lookup failed

The websocket handshake treats every failure as "stay anonymous"; the
per-message path rejects the send.
*/
package auth
