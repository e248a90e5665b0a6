// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/metrics"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

// MessageStore persists messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg models.NewMessage) (*models.Message, error)
}

// MembershipOracle lists the members of a group.
type MembershipOracle interface {
	ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
}

// IdentityResolver resolves a per-message credential.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// Options bounds the send path.
type Options struct {
	MaxContentLength int
	PersistTimeout   time.Duration
	LookupTimeout    time.Duration
}

// Router handles inbound send requests.
type Router struct {
	registry   session.Registry
	resolver   IdentityResolver
	store      MessageStore
	members    MembershipOracle
	dispatcher Dispatcher
	opts       Options
}

// NewRouter creates a Router.
func NewRouter(
	registry session.Registry,
	resolver IdentityResolver,
	store MessageStore,
	members MembershipOracle,
	dispatcher Dispatcher,
	opts Options,
) *Router {
	return &Router{
		registry:   registry,
		resolver:   resolver,
		store:      store,
		members:    members,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Send resolves the sender of connID, stores req and dispatches it.
//
// The stored message is returned on success. Once persistence has started
// the send runs to completion even if ctx is canceled, so a client that
// disconnects mid-send still gets its message stored and delivered to the
// rest of the audience.
func (r *Router) Send(ctx context.Context, connID string, req models.SendRequest) (*models.Message, error) {
	log := logging.Ctx(ctx)

	sender, err := r.resolveSender(ctx, connID, req.Token)
	if err != nil {
		metrics.RecordSend(string(modeOfRequest(&req)), "no_identity")
		log.Warn().Err(err).Msg("dropping send without sender identity")
		return nil, err
	}

	if err := validateRequest(&req, r.opts.MaxContentLength); err != nil {
		metrics.RecordSend(string(modeOfRequest(&req)), "invalid")
		log.Warn().Err(err).Int64("user_id", sender.UserID).Msg("dropping invalid send")
		return nil, err
	}

	if req.GroupID != nil && req.RecipientID != nil {
		log.Debug().Int64("group_id", *req.GroupID).Int64("recipient_id", *req.RecipientID).
			Msg("send addressed to both a group and a recipient, routing to group")
		req.RecipientID = nil
	}

	ctx = context.WithoutCancel(ctx)

	msg, err := r.persist(ctx, sender, &req)
	if err != nil {
		metrics.RecordSend(string(modeOfRequest(&req)), "persist_failed")
		log.Error().Err(err).Int64("user_id", sender.UserID).Msg("failed to persist message")
		return nil, err
	}

	aud := r.audience(ctx, sender, msg)
	r.dispatcher.Dispatch(ctx, msg, aud)

	metrics.RecordSend(string(aud.Mode), "ok")
	log.Debug().
		Int64("message_id", msg.ID).
		Int64("user_id", sender.UserID).
		Str("mode", string(aud.Mode)).
		Msg("message sent")
	return msg, nil
}

// resolveSender prefers the connection identity and falls back to the
// per-message credential. The fallback identity is not attached to the
// connection.
func (r *Router) resolveSender(ctx context.Context, connID, token string) (models.Identity, error) {
	if id, ok := r.registry.Identity(connID); ok {
		return id, nil
	}
	if token == "" {
		return models.Identity{}, ErrNoIdentity
	}
	id, err := r.resolver.Resolve(ctx, token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrNoIdentity, err)
	}
	return id, nil
}

func (r *Router) persist(ctx context.Context, sender models.Identity, req *models.SendRequest) (*models.Message, error) {
	if r.opts.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.PersistTimeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := r.store.CreateMessage(ctx, models.NewMessage{
		AuthorID:    sender.UserID,
		Content:     req.Content,
		RecipientID: req.RecipientID,
		GroupID:     req.GroupID,
		Attachment:  req.Attachment,
	})
	metrics.RecordPersist(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return msg, nil
}

// audience computes the target users of msg. A failed membership lookup
// yields an empty group audience.
func (r *Router) audience(ctx context.Context, sender models.Identity, msg *models.Message) Audience {
	switch ModeOf(msg) {
	case ModeGroup:
		lookupCtx := ctx
		if r.opts.LookupTimeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, r.opts.LookupTimeout)
			defer cancel()
		}
		members, err := r.members.ListMemberIDs(lookupCtx, *msg.GroupID)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(fmt.Errorf("%w: %w", ErrMembershipLookup, err)).
				Int64("group_id", *msg.GroupID).
				Int64("message_id", msg.ID).
				Msg("delivering group message to nobody")
			return GroupAudience(nil)
		}
		return GroupAudience(members)
	case ModeDirect:
		return DirectAudience(sender.UserID, *msg.RecipientID)
	default:
		return BroadcastAudience()
	}
}

func modeOfRequest(req *models.SendRequest) Mode {
	switch {
	case req.GroupID != nil:
		return ModeGroup
	case req.RecipientID != nil:
		return ModeDirect
	default:
		return ModeBroadcast
	}
}
