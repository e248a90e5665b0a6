// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"errors"
)

var (
	// ErrBackboneClosed is returned by operations on a closed backbone.
	ErrBackboneClosed = errors.New("fanout backbone closed")

	// ErrSubscriptionEnded is returned by Bridge.Run when the backbone closes
	// the subscription while the context is still live.
	ErrSubscriptionEnded = errors.New("fanout subscription ended")
)

// Backbone is a broadcast pub/sub transport. Every subscriber of a subject
// receives every payload published to it, on every process.
type Backbone interface {
	// Publish sends payload to all subscribers of subject.
	Publish(ctx context.Context, subject string, payload []byte) error

	// Subscribe returns payloads published to subject. The channel is closed
	// when ctx is canceled or the backbone is closed.
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)

	// Name identifies the backend in logs and metrics.
	Name() string

	Close() error
}
