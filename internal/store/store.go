// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package store

import (
	"context"
	"errors"

	"github.com/tomtom215/chatrelay/internal/models"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownReference is returned when a message references a missing user or group.
	ErrUnknownReference = errors.New("message references a missing user or group")
)

// Store is the full set of operations the gateway needs from persistence.
type Store interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
	FindUserByID(ctx context.Context, id int64) (models.User, error)
	ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	Ping(ctx context.Context) error
	Close()
}
