// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

/*
Package models defines the data structures shared by the delivery core.

Key types:

  - Identity: the authenticated {userId, username} bound to a connection
  - Message: a stored chat message with its author profile embedded
  - NewMessage: the write model handed to the message store
  - SendRequest: the inbound send_message payload
  - Attachment: a file descriptor produced by the upload service
  - GroupMember: a row of group membership with its role

JSON field names are camelCase to match the existing web client.
*/
package models
