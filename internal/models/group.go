// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package models

// Role is a member's role within a group. It governs group management only;
// every member is eligible for delivery regardless of role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// GroupMember is one row of group membership.
type GroupMember struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
	Role    Role  `json:"role"`
}
