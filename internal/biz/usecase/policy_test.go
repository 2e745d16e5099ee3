package usecase

import (
	"testing"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var self = Identity{Email: "relay@example.com", UserID: 99}

func streamMsg(streamID int64, topic string, flags ...string) *domain.Message {
	return &domain.Message{
		ID:          1,
		Kind:        domain.MessageKindStream,
		SenderID:    5,
		SenderEmail: "alice@example.com",
		StreamID:    streamID,
		StreamName:  "general",
		Topic:       topic,
		Flags:       flags,
	}
}

func TestDecide_Precedence(t *testing.T) {
	muted := domain.NewMuteSnapshot([]int64{7}, []domain.TopicKey{{StreamID: 8, Topic: "noise"}}, time.Now())

	own := streamMsg(1, "x", domain.FlagMentioned)
	own.SenderEmail = self.Email

	ownByID := streamMsg(1, "x")
	ownByID.SenderID = self.UserID

	private := &domain.Message{ID: 2, Kind: domain.MessageKindPrivate, SenderEmail: "bob@example.com"}

	tests := []struct {
		name      string
		msg       *domain.Message
		ignoreOwn bool
		want      Decision
	}{
		{"own message ignored even when mentioned", own, true, Decision{false, ReasonOwnMessage}},
		{"own message by user id", ownByID, true, Decision{false, ReasonOwnMessage}},
		{"own message kept when not ignoring", own, false, Decision{true, ReasonMentioned}},
		{"mention beats muted stream", streamMsg(7, "x", domain.FlagMentioned), true, Decision{true, ReasonMentioned}},
		{"wildcard beats muted stream", streamMsg(7, "x", domain.FlagWildcardMentioned), true, Decision{true, ReasonMentioned}},
		{"stream wildcard beats muted stream", streamMsg(7, "x", domain.FlagStreamWildcardMentioned), true, Decision{true, ReasonMentioned}},
		{"private always forwarded", private, true, Decision{true, ReasonPrivate}},
		{"muted stream suppressed", streamMsg(7, "x"), true, Decision{false, ReasonStreamMuted}},
		{"muted topic suppressed case-insensitively", streamMsg(8, "NOISE"), true, Decision{false, ReasonTopicMuted}},
		{"other topic in same stream", streamMsg(8, "signal"), true, Decision{true, ReasonNotMuted}},
		{"unmuted stream", streamMsg(3, "x"), true, Decision{true, ReasonNotMuted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Decide(tt.msg, muted, self, tt.ignoreOwn))
		})
	}
}

func TestDecide_EmptySnapshot(t *testing.T) {
	require.True(t, ShouldForward(streamMsg(7, "x"), domain.EmptyMuteSnapshot(), self, true))
	require.True(t, ShouldForward(streamMsg(7, "x"), nil, self, true))
}

func drawSnapshot(t *rapid.T, include int64) *domain.MuteSnapshot {
	ids := rapid.SliceOf(rapid.Int64Range(1, 50)).Draw(t, "mutedStreams")
	if include != 0 {
		ids = append(ids, include)
	}
	return domain.NewMuteSnapshot(ids, nil, time.Now())
}

func drawForeignMessage(t *rapid.T, kind domain.MessageKind) *domain.Message {
	return &domain.Message{
		ID:          rapid.Int64Range(1, 1<<40).Draw(t, "id"),
		Kind:        kind,
		SenderID:    rapid.Int64Range(1, 98).Draw(t, "sender"),
		SenderEmail: rapid.StringMatching(`[a-z]{1,8}@example\.org`).Draw(t, "email"),
		StreamID:    rapid.Int64Range(1, 50).Draw(t, "stream"),
		Topic:       rapid.String().Draw(t, "topic"),
	}
}

// TestMentionAlwaysForwarded checks that any mention flag overrides mute state.
func TestMentionAlwaysForwarded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := drawForeignMessage(t, domain.MessageKindStream)
		flag := rapid.SampledFrom([]string{
			domain.FlagMentioned,
			domain.FlagWildcardMentioned,
			domain.FlagStreamWildcardMentioned,
		}).Draw(t, "flag")
		msg.Flags = []string{flag}

		snap := drawSnapshot(t, msg.StreamID)
		if !ShouldForward(msg, snap, self, rapid.Bool().Draw(t, "ignoreOwn")) {
			t.Fatalf("mentioned message in muted stream %d was suppressed", msg.StreamID)
		}
	})
}

// TestPrivateAlwaysForwarded checks that private messages ignore mute state.
func TestPrivateAlwaysForwarded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := drawForeignMessage(t, domain.MessageKindPrivate)
		snap := drawSnapshot(t, msg.StreamID)
		if !ShouldForward(msg, snap, self, true) {
			t.Fatal("private message was suppressed")
		}
	})
}

// TestMutedStreamSuppressed checks that unmentioned messages in muted streams are dropped.
func TestMutedStreamSuppressed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := drawForeignMessage(t, domain.MessageKindStream)
		msg.Flags = rapid.SliceOf(rapid.SampledFrom([]string{"read", "starred", "has_alert_word"})).Draw(t, "flags")
		snap := drawSnapshot(t, msg.StreamID)
		if ShouldForward(msg, snap, self, rapid.Bool().Draw(t, "ignoreOwn")) {
			t.Fatalf("message in muted stream %d was forwarded", msg.StreamID)
		}
	})
}
