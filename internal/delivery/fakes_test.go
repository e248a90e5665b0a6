// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chatrelay/internal/logging"
	"github.com/tomtom215/chatrelay/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

var errPushFailed = errors.New("send queue full")

// recordingPusher records decoded messages per connection.
type recordingPusher struct {
	mu       sync.Mutex
	received map[string][]models.Message
	failFor  map[string]bool
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{received: make(map[string][]models.Message), failFor: make(map[string]bool)}
}

func (p *recordingPusher) EncodeMessage(msg *models.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (p *recordingPusher) Push(connID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[connID] {
		return errPushFailed
	}
	var m models.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	p.received[connID] = append(p.received[connID], m)
	return nil
}

func (p *recordingPusher) messagesFor(connID string) []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Message(nil), p.received[connID]...)
}

func (p *recordingPusher) totalPushes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, msgs := range p.received {
		n += len(msgs)
	}
	return n
}

type failingStore struct{ err error }

func (s failingStore) CreateMessage(context.Context, models.NewMessage) (*models.Message, error) {
	return nil, s.err
}

type failingMembers struct{ err error }

func (m failingMembers) ListMemberIDs(context.Context, int64) ([]int64, error) {
	return nil, m.err
}

// recordingDispatcher captures the audience handed to the dispatcher.
type recordingDispatcher struct {
	mu        sync.Mutex
	audiences []Audience
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *models.Message, aud Audience) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audiences = append(d.audiences, aud)
}
