// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package store implements the message, user profile and group membership
stores consumed by the delivery core.

Two implementations share the same method set:

  - Postgres: pgx/v5 connection pool, used when database.url is set
  - Memory: mutex-guarded maps, used in development and tests

The gateway never manages accounts or groups; those rows are written by the
account service. Memory exposes AddUser and AddGroupMember so tests and the
development seed can populate it.
*/
package store
