// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/logging"
)

// forwardBuffer is the per-subscription buffer between Watermill and the
// Bridge receive loop.
const forwardBuffer = 64

// WatermillBackbone adapts a Watermill publisher/subscriber pair to Backbone.
type WatermillBackbone struct {
	name       string
	publisher  message.Publisher
	subscriber message.Subscriber
	owned      bool

	mu     sync.Mutex
	closed bool
}

// NewMemoryBackbone returns an in-process backbone with its own GoChannel.
func NewMemoryBackbone() *WatermillBackbone {
	ps := NewGoChannel()
	return &WatermillBackbone{
		name:       config.FanoutMemory,
		publisher:  ps,
		subscriber: ps,
		owned:      true,
	}
}

// NewGoChannel creates the GoChannel used by memory backbones. Several
// backbones built on the same GoChannel behave like nodes sharing a broker.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: forwardBuffer,
		Persistent:          false,
	}, logging.NewWatermillAdapter())
}

// NewSharedMemoryBackbone returns a backbone on an existing GoChannel.
// Close does not close ps.
func NewSharedMemoryBackbone(ps *gochannel.GoChannel) *WatermillBackbone {
	return &WatermillBackbone{
		name:       config.FanoutMemory,
		publisher:  ps,
		subscriber: ps,
	}
}

// NewNATSBackbone connects to NATS core subjects at url. JetStream is not
// used: envelopes are live deliveries and are worthless once every node
// has seen them.
func NewNATSBackbone(url string, cfg config.NATSConfig) (*WatermillBackbone, error) {
	logger := logging.NewWatermillAdapter()

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(cfg, "publisher"),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	// No queue group: every node must receive every envelope.
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOptions(cfg, "subscriber"),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &WatermillBackbone{
		name:       config.FanoutNATS,
		publisher:  pub,
		subscriber: sub,
		owned:      true,
	}, nil
}

func natsOptions(cfg config.NATSConfig, role string) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("chatrelay-" + role),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("role", role).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("role", role).Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
}

// Name implements Backbone.
func (b *WatermillBackbone) Name() string {
	return b.name
}

// Publish implements Backbone.
func (b *WatermillBackbone) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBackboneClosed
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe implements Backbone. Each Watermill message is acked once it
// has been handed to the caller.
func (b *WatermillBackbone) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBackboneClosed
	}

	msgs, err := b.subscriber.Subscribe(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	out := make(chan []byte, forwardBuffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			select {
			case out <- msg.Payload:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close implements Backbone. Shared GoChannels are left open.
func (b *WatermillBackbone) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if !b.owned {
		return nil
	}

	var firstErr error
	if err := b.publisher.Close(); err != nil {
		firstErr = err
	}
	// gochannel serves both roles; closing it twice is harmless but noisy.
	if any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Backbone = (*WatermillBackbone)(nil)
