// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package websocket

import (
	"github.com/goccy/go-json"
)

// Frame types
const (
	FrameTypeSendMessage    = "send_message"
	FrameTypeReceiveMessage = "receive_message"
	FrameTypePing           = "ping"
	FrameTypePong           = "pong"
)

// Frame is the envelope of every websocket text message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// inboundFrame defers decoding of Data until Type is known.
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalFrame encodes a frame.
func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

var pongFrame = []byte(`{"type":"pong"}`)
