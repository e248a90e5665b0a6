// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package models

// Identity is the authenticated user bound to a connection.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.UserID == 0
}

// User is a row from the user profile store.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Identity converts a profile row to a connection identity.
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}
