// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chatrelay/internal/delivery"
)

func TestBridge_MultiNodeDelivery(t *testing.T) {
	ps := NewGoChannel()
	t.Cleanup(func() { _ = ps.Close() })

	// Alice (1) on node A, Bob (2) and Carol (3) on node B.
	a := newNode(t, "node-a", NewSharedMemoryBackbone(ps), map[string]int64{"a-alice": 1, "a-anon": 0})
	b := newNode(t, "node-b", NewSharedMemoryBackbone(ps), map[string]int64{"b-bob": 2, "b-carol": 3})
	a.start(t)
	b.start(t)

	tests := []struct {
		name     string
		aud      delivery.Audience
		wantA    map[string]int
		wantB    map[string]int
		waitConn string
		waitNode *node
	}{
		{
			name:     "direct reaches recipient on other node",
			aud:      delivery.DirectAudience(1, 2),
			wantA:    map[string]int{"a-alice": 1, "a-anon": 0},
			wantB:    map[string]int{"b-bob": 1, "b-carol": 0},
			waitConn: "b-bob",
			waitNode: b,
		},
		{
			name:     "group limited to members",
			aud:      delivery.GroupAudience([]int64{1, 3}),
			wantA:    map[string]int{"a-alice": 2, "a-anon": 0},
			wantB:    map[string]int{"b-bob": 1, "b-carol": 1},
			waitConn: "b-carol",
			waitNode: b,
		},
		{
			name:     "broadcast reaches everyone once",
			aud:      delivery.BroadcastAudience(),
			wantA:    map[string]int{"a-alice": 3, "a-anon": 1},
			wantB:    map[string]int{"b-bob": 2, "b-carol": 2},
			waitConn: "b-carol",
			waitNode: b,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.bridge.Dispatch(context.Background(), testMessage(int64(i+1)), tt.aud)
			waitForPush(t, tt.waitNode.pusher, tt.waitConn, tt.wantB[tt.waitConn])

			// Give node A time to see its own envelope; it must not deliver twice.
			time.Sleep(50 * time.Millisecond)

			for conn, want := range tt.wantA {
				if got := a.pusher.count(conn); got != want {
					t.Errorf("node A %s pushes = %d, want %d", conn, got, want)
				}
			}
			for conn, want := range tt.wantB {
				if got := b.pusher.count(conn); got != want {
					t.Errorf("node B %s pushes = %d, want %d", conn, got, want)
				}
			}
		})
	}
}

func TestBridge_PublishFailureStillDeliversLocally(t *testing.T) {
	backbone := newStubBackbone()
	backbone.publishErr = errBackboneDown
	n := newNode(t, "solo", backbone, map[string]int64{"c1": 1, "c2": 2})

	for i := 0; i < 5; i++ {
		n.bridge.Dispatch(context.Background(), testMessage(int64(i+1)), delivery.BroadcastAudience())
	}

	if got := n.pusher.count("c1"); got != 5 {
		t.Errorf("c1 pushes = %d, want 5", got)
	}
	if got := n.pusher.count("c2"); got != 5 {
		t.Errorf("c2 pushes = %d, want 5", got)
	}
	if got := n.bridge.BreakerState(); got != "open" {
		t.Errorf("BreakerState() = %q, want open after repeated failures", got)
	}
}

func TestBridge_PublishesEnvelope(t *testing.T) {
	backbone := newStubBackbone()
	n := newNode(t, "node-x", backbone, map[string]int64{"c1": 1})

	n.bridge.Dispatch(context.Background(), testMessage(42), delivery.DirectAudience(1, 9))

	if backbone.publishedCount() != 1 {
		t.Fatalf("published %d envelopes, want 1", backbone.publishedCount())
	}
	var env Envelope
	if err := json.Unmarshal(backbone.published[0], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Origin != "node-x" {
		t.Errorf("Origin = %q, want node-x", env.Origin)
	}
	if env.ID == "" {
		t.Error("envelope ID should be set")
	}
	if env.Message == nil || env.Message.ID != 42 {
		t.Errorf("Message = %+v, want ID 42", env.Message)
	}
	if env.Audience.Mode != delivery.ModeDirect || len(env.Audience.UserIDs) != 2 {
		t.Errorf("Audience = %+v, want direct to [1 9]", env.Audience)
	}
	if got := n.pusher.count("c1"); got != 1 {
		t.Errorf("local pushes = %d, want 1", got)
	}
}

func TestBridge_ReceiveLoop(t *testing.T) {
	backbone := newStubBackbone()
	n := newNode(t, "node-r", backbone, map[string]int64{"c1": 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- n.bridge.Run(ctx) }()
	<-n.bridge.Ready()

	encode := func(env Envelope) []byte {
		data, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return data
	}

	backbone.ch <- []byte("{not json")
	backbone.ch <- encode(Envelope{ID: "self", Origin: "node-r", Message: testMessage(1), Audience: delivery.BroadcastAudience()})
	backbone.ch <- encode(Envelope{ID: "empty", Origin: "node-q", Audience: delivery.BroadcastAudience()})
	backbone.ch <- encode(Envelope{ID: "remote", Origin: "node-q", Message: testMessage(2), Audience: delivery.BroadcastAudience()})

	waitForPush(t, n.pusher, "c1", 1)
	if !n.bridge.Subscribed() {
		t.Error("Subscribed() should be true while running")
	}

	close(backbone.ch)
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSubscriptionEnded) {
			t.Errorf("Run() error = %v, want ErrSubscriptionEnded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after subscription closed")
	}

	if got := n.pusher.count("c1"); got != 1 {
		t.Errorf("c1 pushes = %d, want 1 (only the remote envelope)", got)
	}
	if n.bridge.Subscribed() {
		t.Error("Subscribed() should be false after Run returns")
	}
}

func TestBridge_RunStopsOnCancel(t *testing.T) {
	n := newNode(t, "node-c", newStubBackbone(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- n.bridge.Run(ctx) }()
	<-n.bridge.Ready()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestNewBridge_Defaults(t *testing.T) {
	b := NewBridge(newStubBackbone(), delivery.NewLocalFanout(nil, nil), BridgeConfig{Subject: "s"})
	if b.NodeID() == "" {
		t.Error("NodeID should be generated when empty")
	}
	if b.BackboneName() != "stub" {
		t.Errorf("BackboneName() = %q, want stub", b.BackboneName())
	}
	if b.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", b.BreakerState())
	}
}
