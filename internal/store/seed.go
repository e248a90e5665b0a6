// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package store

import "github.com/tomtom215/chatrelay/internal/models"

// DevGroupID is the group created by SeedDevelopment.
const DevGroupID int64 = 1

// SeedDevelopment populates m with three users and one group so the gateway
// can be exercised without the account service: alice (1), bob (2) and
// carol (3), with alice and bob in group 1.
func SeedDevelopment(m *Memory) {
	m.AddUser(models.User{ID: 1, Username: "alice"})
	m.AddUser(models.User{ID: 2, Username: "bob"})
	m.AddUser(models.User{ID: 3, Username: "carol"})
	m.AddGroupMember(DevGroupID, 1, models.RoleAdmin)
	m.AddGroupMember(DevGroupID, 2, models.RoleMember)
}
