// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

// Package session tracks live connections and the identity bound to each.
//
// The registry is the only shared mutable structure on the delivery path.
// Every operation is independent, so a single RWMutex is enough; no
// operation needs to span more than one call.
package session

import (
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/chatrelay/internal/models"
)

var (
	// ErrAlreadyAuthenticated is returned when a different identity is
	// attached to a connection that already carries one.
	ErrAlreadyAuthenticated = errors.New("connection already authenticated")

	// ErrUnknownConnection is returned when attaching an identity to a
	// connection that is not registered.
	ErrUnknownConnection = errors.New("unknown connection")
)

// Registry answers which live connections exist and who owns them.
type Registry interface {
	// Register inserts an anonymous entry.
	Register(connID string)
	// AttachIdentity binds id to connID. The first identity wins; attaching
	// the same identity again is a no-op.
	AttachIdentity(connID string, id models.Identity) error
	// Unregister removes connID. Unknown IDs are ignored.
	Unregister(connID string)
	// Identity returns the identity bound to connID, if any.
	Identity(connID string) (models.Identity, bool)
	// FindByUser returns the live connections owned by userID.
	FindByUser(userID int64) []string
	// All returns every live connection, authenticated or not.
	All() []string
	// Count returns the number of live connections.
	Count() int
}

// Observer is notified of identity changes, after the registry lock is released.
type Observer interface {
	IdentityAttached(connID string, id models.Identity)
	ConnectionClosed(connID string, id models.Identity)
}

type entry struct {
	identity models.Identity
	hasID    bool
}

// MemoryRegistry is the in-process Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	byConn   map[string]*entry
	byUser   map[int64]map[string]struct{}
	observer Observer
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byConn: make(map[string]*entry),
		byUser: make(map[int64]map[string]struct{}),
	}
}

// SetObserver installs o. It must be called before the registry is shared.
func (r *MemoryRegistry) SetObserver(o Observer) {
	r.observer = o
}

// Register implements Registry. Registering an existing ID keeps its identity.
func (r *MemoryRegistry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byConn[connID]; ok {
		return
	}
	r.byConn[connID] = &entry{}
}

// AttachIdentity implements Registry.
func (r *MemoryRegistry) AttachIdentity(connID string, id models.Identity) error {
	r.mu.Lock()
	e, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownConnection
	}
	if e.hasID {
		same := e.identity.UserID == id.UserID
		r.mu.Unlock()
		if same {
			return nil
		}
		return ErrAlreadyAuthenticated
	}

	e.identity = id
	e.hasID = true
	conns := r.byUser[id.UserID]
	if conns == nil {
		conns = make(map[string]struct{})
		r.byUser[id.UserID] = conns
	}
	conns[connID] = struct{}{}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.IdentityAttached(connID, id)
	}
	return nil
}

// Unregister implements Registry.
func (r *MemoryRegistry) Unregister(connID string) {
	r.mu.Lock()
	e, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	if e.hasID {
		if conns := r.byUser[e.identity.UserID]; conns != nil {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.byUser, e.identity.UserID)
			}
		}
	}
	r.mu.Unlock()

	if e.hasID && r.observer != nil {
		r.observer.ConnectionClosed(connID, e.identity)
	}
}

// Identity implements Registry.
func (r *MemoryRegistry) Identity(connID string) (models.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[connID]
	if !ok || !e.hasID {
		return models.Identity{}, false
	}
	return e.identity, true
}

// FindByUser implements Registry. The result is sorted.
func (r *MemoryRegistry) FindByUser(userID int64) []string {
	r.mu.RLock()
	conns := r.byUser[userID]
	out := make([]string, 0, len(conns))
	for id := range conns {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// All implements Registry. The result is sorted.
func (r *MemoryRegistry) All() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byConn))
	for id := range r.byConn {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Count implements Registry.
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Users returns the distinct authenticated users with at least one live connection.
func (r *MemoryRegistry) Users() []int64 {
	r.mu.RLock()
	out := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var _ Registry = (*MemoryRegistry)(nil)
