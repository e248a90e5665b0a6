// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/chatrelay/internal/models"
)

// Memory is an in-process Store.
type Memory struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	members  map[int64]map[int64]models.Role
	messages []models.Message
	nextID   int64
	now      func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]models.User),
		members: make(map[int64]map[int64]models.Role),
		now:     time.Now,
	}
}

// AddUser inserts or replaces a user profile.
func (m *Memory) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// AddGroupMember adds userID to groupID with role.
func (m *Memory) AddGroupMember(groupID, userID int64, role models.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.members[groupID]
	if g == nil {
		g = make(map[int64]models.Role)
		m.members[groupID] = g
	}
	g[userID] = role
}

// RemoveGroupMember removes userID from groupID.
func (m *Memory) RemoveGroupMember(groupID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[groupID], userID)
}

// CreateMessage stores msg and returns it with the author embedded.
func (m *Memory) CreateMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	author, ok := m.users[msg.AuthorID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReference, msg.AuthorID)
	}

	m.nextID++
	stored := models.Message{
		ID:          m.nextID,
		AuthorID:    author.ID,
		Author:      models.Author{ID: author.ID, Username: author.Username},
		Content:     msg.Content,
		RecipientID: copyID(msg.RecipientID),
		GroupID:     copyID(msg.GroupID),
		CreatedAt:   m.now().UTC(),
	}
	if msg.Attachment != nil {
		a := *msg.Attachment
		stored.Attachment = &a
	}
	m.messages = append(m.messages, stored)

	out := stored
	return &out, nil
}

// FindUserByID returns the profile for id or ErrNotFound.
func (m *Memory) FindUserByID(ctx context.Context, id int64) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// ListMemberIDs returns the sorted member ids of groupID. Unknown groups
// have no members.
func (m *Memory) ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	g := m.members[groupID]
	ids := make([]int64, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Messages returns a copy of every stored message in insertion order.
func (m *Memory) Messages() []models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var _ Store = (*Memory)(nil)
