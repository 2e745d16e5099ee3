package usecase

import (
	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// Identity is the relay's own account on the source platform
type Identity struct {
	Email  string
	UserID int64 // zero until resolved
}

// Decision reasons, used in logs and counters
const (
	ReasonOwnMessage  = "own_message"
	ReasonMentioned   = "mentioned"
	ReasonPrivate     = "private"
	ReasonStreamMuted = "stream_muted"
	ReasonTopicMuted  = "topic_muted"
	ReasonNotMuted    = "not_muted"
)

// Decision is the outcome of the notification policy for one message
type Decision struct {
	Forward bool
	Reason  string
}

// Decide runs the notification policy. The first matching rule wins:
// own message (when ignored), mention, private message, muted stream,
// muted topic, otherwise forward.
func Decide(msg *domain.Message, snap *domain.MuteSnapshot, self Identity, ignoreOwn bool) Decision {
	if ignoreOwn && msg.IsFrom(self.Email, self.UserID) {
		return Decision{Forward: false, Reason: ReasonOwnMessage}
	}

	// Mentions override any mute setting
	if msg.IsMentioned() {
		return Decision{Forward: true, Reason: ReasonMentioned}
	}

	if msg.IsPrivate() {
		return Decision{Forward: true, Reason: ReasonPrivate}
	}

	if snap.IsStreamMuted(msg.StreamID) {
		return Decision{Forward: false, Reason: ReasonStreamMuted}
	}

	// Topic mutes are never populated today; the check stays for when the
	// upstream API exposes them.
	if snap.IsTopicMuted(msg.StreamID, msg.Topic) {
		return Decision{Forward: false, Reason: ReasonTopicMuted}
	}

	return Decision{Forward: true, Reason: ReasonNotMuted}
}

// ShouldForward reports whether the message should reach the destination chat
func ShouldForward(msg *domain.Message, snap *domain.MuteSnapshot, self Identity, ignoreOwn bool) bool {
	return Decide(msg, snap, self, ignoreOwn).Forward
}
