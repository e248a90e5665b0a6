// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/chatrelay/internal/fanout"
)

var (
	_ suture.Service    = (*FanoutBridgeService)(nil)
	_ suture.Service    = (*PresenceRefreshService)(nil)
	_ BridgeRunner      = (*fanout.Bridge)(nil)
	_ PresenceRefresher = (*fanout.RedisPresence)(nil)
)

// flakyBridge ends its subscription failFirst times, then runs until canceled.
type flakyBridge struct {
	failFirst int32
	runs      atomic.Int32
}

func (b *flakyBridge) Run(ctx context.Context) error {
	if b.runs.Add(1) <= b.failFirst {
		return fanout.ErrSubscriptionEnded
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *flakyBridge) BackboneName() string { return "nats" }

func TestFanoutBridgeService_Serve(t *testing.T) {
	t.Run("wraps subscription end", func(t *testing.T) {
		svc := NewFanoutBridgeService(&flakyBridge{failFirst: 1})
		if svc.String() != "fanout-bridge-nats" {
			t.Errorf("String() = %q", svc.String())
		}
		err := svc.Serve(context.Background())
		if !errors.Is(err, fanout.ErrSubscriptionEnded) {
			t.Errorf("Serve() = %v, want ErrSubscriptionEnded", err)
		}
	})

	t.Run("returns context error on shutdown", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := NewFanoutBridgeService(&flakyBridge{}).Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
	})

	t.Run("supervisor resubscribes", func(t *testing.T) {
		bridge := &flakyBridge{failFirst: 2}
		sup := suture.New("fanout-test", suture.Spec{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			Timeout:          time.Second,
		})
		sup.Add(NewFanoutBridgeService(bridge))

		ctx, cancel := context.WithCancel(context.Background())
		errCh := sup.ServeBackground(ctx)

		deadline := time.Now().Add(2 * time.Second)
		for bridge.runs.Load() < 3 {
			if time.Now().After(deadline) {
				t.Fatalf("bridge ran %d times, want 3", bridge.runs.Load())
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
		<-errCh
	})
}

type stubUsers []int64

func (s stubUsers) Users() []int64 { return s }

type recordingPresence struct {
	users fanout.UserLister
}

func (p *recordingPresence) Run(ctx context.Context, users fanout.UserLister) error {
	p.users = users
	<-ctx.Done()
	return ctx.Err()
}

func TestPresenceRefreshService_Serve(t *testing.T) {
	presence := &recordingPresence{}
	users := stubUsers{1, 2}
	svc := NewPresenceRefreshService(presence, users)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v", err)
	}
	if got := presence.users.Users(); len(got) != 2 {
		t.Errorf("presence got users %v, want the registry lister", got)
	}
	if svc.String() != "presence-refresh" {
		t.Errorf("String() = %q", svc.String())
	}
}
