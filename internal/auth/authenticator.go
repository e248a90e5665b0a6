// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
)

// UserStore looks up user profiles.
type UserStore interface {
	FindUserByID(ctx context.Context, id int64) (models.User, error)
}

// Verifier turns a token into a subject id.
type Verifier interface {
	Verify(token string) (int64, error)
}

// Authenticator resolves bearer credentials to identities. It is used both at
// connect time and for the per-message credential fallback.
type Authenticator struct {
	verifier      Verifier
	users         UserStore
	lookupTimeout time.Duration
}

// NewAuthenticator creates an Authenticator. A zero lookupTimeout disables
// the per-lookup deadline.
func NewAuthenticator(verifier Verifier, users UserStore, lookupTimeout time.Duration) *Authenticator {
	return &Authenticator{verifier: verifier, users: users, lookupTimeout: lookupTimeout}
}

// Resolve verifies token and loads its subject's profile.
//
// Errors:
//   - ErrNoCredential: token is empty
//   - ErrInvalidCredential: verification failed
//   - ErrUnknownSubject: the profile no longer exists, or the lookup failed
func (a *Authenticator) Resolve(ctx context.Context, token string) (models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, ErrNoCredential
	}

	userID, err := a.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthAttempt("invalid")
		if !errors.Is(err, ErrInvalidCredential) {
			err = fmt.Errorf("%w: %w", ErrInvalidCredential, err)
		}
		return models.Identity{}, err
	}

	if a.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
	}

	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		metrics.RecordAuthAttempt("unknown_subject")
		return models.Identity{}, fmt.Errorf("%w: user %d: %w", ErrUnknownSubject, userID, err)
	}

	metrics.RecordAuthAttempt("success")
	return user.Identity(), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
