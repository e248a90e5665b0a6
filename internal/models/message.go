// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package models

import (
	"strings"
	"time"
)

// MaxAttachmentBytes is the upload size ceiling enforced by the upload service.
const MaxAttachmentBytes int64 = 50 * 1024 * 1024

// allowedAttachmentTypes is the MIME allow-list shared with the upload service.
var allowedAttachmentTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"video/mp4",
	"video/mpeg",
	"video/webm",
	"video/quicktime",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
	"audio/mpeg",
	"audio/wav",
	"audio/ogg",
}

// AttachmentTypeAllowed reports whether mimeType is on the upload allow-list.
func AttachmentTypeAllowed(mimeType string) bool {
	for _, t := range allowedAttachmentTypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// Attachment describes a file already stored by the upload service.
type Attachment struct {
	URL       string `json:"url" validate:"required"`
	Name      string `json:"name" validate:"required,max=255"`
	MimeType  string `json:"mimeType" validate:"required"`
	SizeBytes int64  `json:"sizeBytes" validate:"gte=0"`
}

// Author is the public profile embedded in delivered messages.
type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Message is a stored chat message. At most one of RecipientID and GroupID is
// set; neither set means broadcast.
type Message struct {
	ID          int64       `json:"id"`
	AuthorID    int64       `json:"authorId"`
	Author      Author      `json:"author"`
	Content     string      `json:"content"`
	RecipientID *int64      `json:"recipientId,omitempty"`
	GroupID     *int64      `json:"groupId,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// IsDirect reports whether the message is addressed to a single recipient.
func (m *Message) IsDirect() bool {
	return m.GroupID == nil && m.RecipientID != nil
}

// IsGroup reports whether the message is addressed to a group.
func (m *Message) IsGroup() bool {
	return m.GroupID != nil
}

// NewMessage is the write model passed to the message store.
type NewMessage struct {
	AuthorID    int64
	Content     string
	RecipientID *int64
	GroupID     *int64
	Attachment  *Attachment
}

// SendRequest is the inbound send_message payload.
type SendRequest struct {
	// Token is the per-message credential used when the connection has no
	// identity attached.
	Token       string      `json:"token,omitempty"`
	Content     string      `json:"content"`
	RecipientID *int64      `json:"recipientId,omitempty" validate:"omitempty,gt=0"`
	GroupID     *int64      `json:"groupId,omitempty" validate:"omitempty,gt=0"`
	Attachment  *Attachment `json:"attachment,omitempty"`
}
