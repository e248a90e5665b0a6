// Chatrelay - Real-Time Chat Delivery Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chatrelay

package delivery

import (
	"testing"

	"github.com/tomtom215/chatrelay/internal/models"
	"github.com/tomtom215/chatrelay/internal/session"
)

func TestModeOf(t *testing.T) {
	r, g := int64(2), int64(9)
	tests := []struct {
		name string
		msg  models.Message
		want Mode
	}{
		{"broadcast", models.Message{}, ModeBroadcast},
		{"direct", models.Message{RecipientID: &r}, ModeDirect},
		{"group", models.Message{GroupID: &g}, ModeGroup},
		{"group wins", models.Message{GroupID: &g, RecipientID: &r}, ModeGroup},
	}
	for _, tt := range tests {
		if got := ModeOf(&tt.msg); got != tt.want {
			t.Errorf("%s: ModeOf() = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestGroupAudienceDedupes(t *testing.T) {
	a := GroupAudience([]int64{3, 1, 3, 2})
	want := []int64{1, 2, 3}
	if len(a.UserIDs) != len(want) {
		t.Fatalf("UserIDs = %v, want %v", a.UserIDs, want)
	}
	for i := range want {
		if a.UserIDs[i] != want[i] {
			t.Errorf("UserIDs = %v, want %v", a.UserIDs, want)
		}
	}
}

func TestLocalFanoutTargets(t *testing.T) {
	reg := session.NewMemoryRegistry()
	for _, c := range []string{"a1", "a2", "b1", "c1", "anon"} {
		reg.Register(c)
	}
	_ = reg.AttachIdentity("a1", models.Identity{UserID: 1})
	_ = reg.AttachIdentity("a2", models.Identity{UserID: 1})
	_ = reg.AttachIdentity("b1", models.Identity{UserID: 2})
	_ = reg.AttachIdentity("c1", models.Identity{UserID: 3})

	f := NewLocalFanout(reg, newRecordingPusher())

	tests := []struct {
		name string
		aud  Audience
		want []string
	}{
		{"broadcast includes anonymous", BroadcastAudience(), []string{"a1", "a2", "anon", "b1", "c1"}},
		{"direct", DirectAudience(1, 2), []string{"a1", "a2", "b1"}},
		{"group", GroupAudience([]int64{2, 3, 99}), []string{"b1", "c1"}},
		{"empty group", GroupAudience(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Targets(tt.aud)
			if len(got) != len(tt.want) {
				t.Fatalf("Targets() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Targets() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
