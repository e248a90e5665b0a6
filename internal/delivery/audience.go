// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"sort"

	"github.com/tomtom215/chatrelay/internal/models"
)

// Mode is the addressing branch a message was routed by.
type Mode string

const (
	ModeBroadcast Mode = "broadcast"
	ModeDirect    Mode = "direct"
	ModeGroup     Mode = "group"
)

// Audience is the set of users a message is for. UserIDs is unused for
// broadcast and may be empty for a group whose members could not be listed.
type Audience struct {
	Mode    Mode    `json:"mode"`
	UserIDs []int64 `json:"userIds,omitempty"`
}

// ModeOf returns the addressing branch for msg. Group takes precedence.
func ModeOf(msg *models.Message) Mode {
	switch {
	case msg.GroupID != nil:
		return ModeGroup
	case msg.RecipientID != nil:
		return ModeDirect
	default:
		return ModeBroadcast
	}
}

// BroadcastAudience targets every live connection.
func BroadcastAudience() Audience {
	return Audience{Mode: ModeBroadcast}
}

// DirectAudience targets the sender's and the recipient's connections.
func DirectAudience(senderID, recipientID int64) Audience {
	return Audience{Mode: ModeDirect, UserIDs: uniqueSorted([]int64{senderID, recipientID})}
}

// GroupAudience targets the connections of memberIDs.
func GroupAudience(memberIDs []int64) Audience {
	return Audience{Mode: ModeGroup, UserIDs: uniqueSorted(memberIDs)}
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
