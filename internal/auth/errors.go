// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package auth

import "errors"

var (
	// ErrNoCredential means no token was presented. Callers treat it as
	// anonymous, not as a failure.
	ErrNoCredential = errors.New("no credential presented")

	// ErrInvalidCredential covers malformed, expired and badly signed tokens
	// and tokens whose subject is not numeric.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrUnknownSubject means the token verified but its user no longer exists.
	ErrUnknownSubject = errors.New("unknown subject")
)
