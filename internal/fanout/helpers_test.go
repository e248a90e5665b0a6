// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package fanout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// capturePusher records pushes and signals each one on pushed.
type capturePusher struct {
	mu     sync.Mutex
	counts map[string]int
	pushed chan string
}

func newCapturePusher() *capturePusher {
	return &capturePusher{counts: make(map[string]int), pushed: make(chan string, 64)}
}

func (p *capturePusher) EncodeMessage(msg *models.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (p *capturePusher) Push(connID string, _ []byte) error {
	p.mu.Lock()
	p.counts[connID]++
	p.mu.Unlock()
	select {
	case p.pushed <- connID:
	default:
	}
	return nil
}

func (p *capturePusher) count(connID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[connID]
}

// node is one simulated process: a registry, a pusher and a bridge.
type node struct {
	registry *session.MemoryRegistry
	pusher   *capturePusher
	bridge   *Bridge
}

func newNode(t *testing.T, id string, backbone Backbone, conns map[string]int64) *node {
	t.Helper()
	reg := session.NewMemoryRegistry()
	for connID, userID := range conns {
		reg.Register(connID)
		if userID > 0 {
			if err := reg.AttachIdentity(connID, models.Identity{UserID: userID, Username: "u"}); err != nil {
				t.Fatalf("attach %s: %v", connID, err)
			}
		}
	}
	pusher := newCapturePusher()
	bridge := NewBridge(backbone, delivery.NewLocalFanout(reg, pusher), BridgeConfig{
		NodeID:             id,
		Subject:            "chatrelay.test",
		BreakerMaxFailures: 3,
		BreakerTimeout:     time.Minute,
	})
	return &node{registry: reg, pusher: pusher, bridge: bridge}
}

// start runs the bridge until the test ends and waits for its subscription.
func (n *node) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.bridge.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-n.bridge.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not subscribe in time")
	}
}

// waitForPush waits until connID has received at least want pushes.
func waitForPush(t *testing.T, p *capturePusher, connID string, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for p.count(connID) < want {
		select {
		case <-p.pushed:
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("%s received %d pushes, want %d", connID, p.count(connID), want)
		}
	}
}

func testMessage(id int64) *models.Message {
	return &models.Message{
		ID:        id,
		AuthorID:  1,
		Author:    models.Author{ID: 1, Username: "alice"},
		Content:   "hello",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

var errBackboneDown = errors.New("backbone down")

// stubBackbone lets tests control publish failures and the subscription channel.
type stubBackbone struct {
	mu         sync.Mutex
	publishErr error
	published  [][]byte
	ch         chan []byte
}

func newStubBackbone() *stubBackbone {
	return &stubBackbone{ch: make(chan []byte, 16)}
}

func (b *stubBackbone) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, payload)
	return nil
}

func (b *stubBackbone) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *stubBackbone) Name() string { return "stub" }

func (b *stubBackbone) Close() error { return nil }

func (b *stubBackbone) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}
