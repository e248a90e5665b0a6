// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/chatrelay/internal/auth"
	"github.com/tomtom215/chatrelay/internal/config"
	"github.com/tomtom215/chatrelay/internal/delivery"
	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
	"github.com/tomtom215/chatrelay/internal/store"
)

const (
	aliceID int64 = 1
	bobID   int64 = 2
	carolID int64 = 3
)

// stack is a single-node gateway served over httptest.
type stack struct {
	server   *httptest.Server
	registry *session.MemoryRegistry
	store    *store.Memory
	jwt      *auth.JWTManager
}

func newStack(t *testing.T, wsCfg config.WebSocketConfig, origins []string) *stack {
	t.Helper()
	registry := session.NewMemoryRegistry()
	st := store.NewMemory()
	store.SeedDevelopment(st)

	security := config.SecurityConfig{
		JWTSecret:   "websocket-test-secret-0123456789abcdef",
		TokenTTL:    time.Hour,
		CORSOrigins: origins,
	}
	jwtManager, err := auth.NewJWTManager(&security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	authn := auth.NewAuthenticator(jwtManager, st, time.Second)

	hub := NewHub(registry, wsCfg)
	router := delivery.NewRouter(registry, authn, st, st, delivery.NewLocalFanout(registry, hub), delivery.Options{
		MaxContentLength: 1000,
		PersistTimeout:   time.Second,
		LookupTimeout:    time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()

	server := httptest.NewServer(NewHandler(hub, authn, router, security))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &stack{server: server, registry: registry, store: st, jwt: jwtManager}
}

func (s *stack) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(userID)
	if err != nil {
		t.Fatalf("GenerateToken(%d) error = %v", userID, err)
	}
	return token
}

// dial connects with an optional handshake token and waits until the hub
// has registered the connection.
func (s *stack) dial(t *testing.T, token string, header http.Header) *websocket.Conn {
	t.Helper()
	before := s.registry.Count()

	u := "ws" + strings.TrimPrefix(s.server.URL, "http")
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.registry.Count() <= before {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

type receivedFrame struct {
	Type string         `json:"type"`
	Data models.Message `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) receivedFrame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var f receivedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return f
}

// expectSilence fails if conn receives a frame within a short window.
func expectSilence(t *testing.T, conn *websocket.Conn, who string) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Errorf("%s unexpectedly received %s", who, data)
		return
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("%s: expected read timeout, got %v", who, err)
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, req models.SendRequest) {
	t.Helper()
	if err := conn.WriteJSON(Frame{Type: FrameTypeSendMessage, Data: req}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestGateway_DirectMessage(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	alice := s.dial(t, s.token(t, aliceID), nil)
	bob := s.dial(t, s.token(t, bobID), nil)
	carol := s.dial(t, s.token(t, carolID), nil)

	sendFrame(t, alice, models.SendRequest{Content: "hi", RecipientID: int64Ptr(bobID)})

	for who, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		f := readFrame(t, conn)
		if f.Type != FrameTypeReceiveMessage {
			t.Errorf("%s frame type = %q", who, f.Type)
		}
		if f.Data.Content != "hi" || f.Data.Author.Username != "alice" {
			t.Errorf("%s got %+v", who, f.Data)
		}
		if f.Data.RecipientID == nil || *f.Data.RecipientID != bobID {
			t.Errorf("%s RecipientID = %v, want %d", who, f.Data.RecipientID, bobID)
		}
	}
	expectSilence(t, carol, "carol")
}

func TestGateway_GroupMessage(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	alice := s.dial(t, s.token(t, aliceID), nil)
	bob := s.dial(t, s.token(t, bobID), nil)
	carol := s.dial(t, s.token(t, carolID), nil)

	sendFrame(t, alice, models.SendRequest{Content: "team update", GroupID: int64Ptr(store.DevGroupID)})

	for who, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		f := readFrame(t, conn)
		if f.Data.Content != "team update" {
			t.Errorf("%s got %+v", who, f.Data)
		}
		if f.Data.GroupID == nil || *f.Data.GroupID != store.DevGroupID {
			t.Errorf("%s GroupID = %v", who, f.Data.GroupID)
		}
	}
	expectSilence(t, carol, "carol")
}

func TestGateway_BroadcastIncludesAnonymous(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	alice := s.dial(t, s.token(t, aliceID), nil)
	anon := s.dial(t, "", nil)

	sendFrame(t, alice, models.SendRequest{Content: "hello all"})

	for who, conn := range map[string]*websocket.Conn{"alice": alice, "anon": anon} {
		if f := readFrame(t, conn); f.Data.Content != "hello all" {
			t.Errorf("%s got %+v", who, f.Data)
		}
	}
}

func TestGateway_AnonymousWithoutCredentialIsDropped(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	anon := s.dial(t, "", nil)
	bob := s.dial(t, s.token(t, bobID), nil)

	sendFrame(t, anon, models.SendRequest{Content: "who am I"})

	expectSilence(t, bob, "bob")
	if n := len(s.store.Messages()); n != 0 {
		t.Errorf("stored %d messages, want 0", n)
	}

	// The connection survives the dropped send.
	if err := anon.WriteJSON(Frame{Type: FrameTypePing}); err != nil {
		t.Fatalf("WriteJSON ping: %v", err)
	}
	if f := readFrame(t, anon); f.Type != FrameTypePong {
		t.Errorf("frame type = %q, want pong", f.Type)
	}
}

func TestGateway_PerMessageCredential(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	anon := s.dial(t, "", nil)
	bob := s.dial(t, s.token(t, bobID), nil)

	sendFrame(t, anon, models.SendRequest{Token: s.token(t, aliceID), Content: "late auth", RecipientID: int64Ptr(bobID)})

	f := readFrame(t, bob)
	if f.Data.Author.ID != aliceID || f.Data.Content != "late auth" {
		t.Errorf("bob got %+v", f.Data)
	}

	// The anonymous connection is not alice's, so it gets no echo and stays anonymous.
	expectSilence(t, anon, "anon")
	if got := s.registry.FindByUser(aliceID); len(got) != 0 {
		t.Errorf("FindByUser(alice) = %v, per-message credential must not attach", got)
	}
}

func TestGateway_BadHandshakeTokenStaysAnonymous(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	s.dial(t, "not-a-jwt", nil)

	if got := s.registry.Count(); got != 1 {
		t.Fatalf("registry.Count() = %d, want 1", got)
	}
	for _, id := range []int64{aliceID, bobID, carolID} {
		if got := s.registry.FindByUser(id); len(got) != 0 {
			t.Errorf("FindByUser(%d) = %v, want none", id, got)
		}
	}
}

func TestGateway_BearerHeader(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	header := http.Header{"Authorization": []string{"Bearer " + s.token(t, carolID)}}
	s.dial(t, "", header)

	if got := s.registry.FindByUser(carolID); len(got) != 1 {
		t.Errorf("FindByUser(carol) = %v, want one connection", got)
	}
}

func TestGateway_DisconnectUnregisters(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	alice := s.dial(t, s.token(t, aliceID), nil)
	_ = alice.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry.Count() = %d after disconnect, want 0", s.registry.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGateway_RateLimit(t *testing.T) {
	cfg := testWSConfig()
	cfg.MessageRate = 0.001
	cfg.MessageBurst = 1
	s := newStack(t, cfg, []string{"*"})
	conn := s.dial(t, "", nil)

	for i := 0; i < 3; i++ {
		if err := conn.WriteJSON(Frame{Type: FrameTypePing}); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
	}
	if f := readFrame(t, conn); f.Type != FrameTypePong {
		t.Errorf("first frame = %q, want pong", f.Type)
	}
	expectSilence(t, conn, "rate limited client")
}

func TestGateway_MalformedFramesIgnored(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"*"})
	conn := s.dial(t, s.token(t, aliceID), nil)

	for _, raw := range []string{`{not json`, `{"type":"unknown"}`, `{"type":"send_message"}`, `{"type":"send_message","data":"nope"}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	if err := conn.WriteJSON(Frame{Type: FrameTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if f := readFrame(t, conn); f.Type != FrameTypePong {
		t.Errorf("frame type = %q, want pong", f.Type)
	}
}

func TestHandler_CheckOrigin(t *testing.T) {
	s := newStack(t, testWSConfig(), []string{"https://chat.example.com"})
	u := "ws" + strings.TrimPrefix(s.server.URL, "http")

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "https://chat.example.com", true},
		{"foreign origin", "https://evil.example.com", false},
		{"missing origin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(u, header)
			if resp != nil && resp.Body != nil {
				defer resp.Body.Close()
			}
			if tt.ok && err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("Dial() succeeded, want rejection")
			}
			if conn != nil {
				_ = conn.Close()
			}
		})
	}
}

func TestHandshakeToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"query", "/ws?token=abc", "", "abc"},
		{"bearer header", "/ws", "Bearer xyz", "xyz"},
		{"query wins", "/ws?token=abc", "Bearer xyz", "abc"},
		{"none", "/ws", "", ""},
		{"basic header ignored", "/ws", "Basic Zm9vOmJhcg==", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := handshakeToken(r); got != tt.want {
				t.Errorf("handshakeToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
