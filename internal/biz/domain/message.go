package domain

// MessageKind distinguishes stream (channel) messages from private ones
type MessageKind string

const (
	MessageKindStream  MessageKind = "stream"
	MessageKindPrivate MessageKind = "private"
)

// Message flags that mark the relay account as addressed
const (
	FlagMentioned               = "mentioned"
	FlagWildcardMentioned       = "wildcard_mentioned"
	FlagStreamWildcardMentioned = "stream_wildcard_mentioned"
)

// Recipient is a participant of a private conversation
type Recipient struct {
	ID       int64
	Email    string
	FullName string
}

// Message represents a message received from the source platform
type Message struct {
	ID             int64
	Kind           MessageKind
	SenderID       int64
	SenderEmail    string
	SenderFullName string

	// Stream messages only. StreamID is zero when unknown.
	StreamID   int64
	StreamName string
	Topic      string

	// Private messages only
	Recipients []Recipient

	Content string // rendered HTML body
	Flags   []string
}

// IsStream reports whether the message was posted to a stream
func (m *Message) IsStream() bool {
	return m.Kind == MessageKindStream
}

// IsPrivate reports whether the message is a direct or group-direct message
func (m *Message) IsPrivate() bool {
	return m.Kind == MessageKindPrivate
}

// HasFlag checks whether the message carries the given flag
func (m *Message) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsMentioned reports a direct, wildcard or stream-wildcard mention
func (m *Message) IsMentioned() bool {
	return m.HasFlag(FlagMentioned) ||
		m.HasFlag(FlagWildcardMentioned) ||
		m.HasFlag(FlagStreamWildcardMentioned)
}

// IsFrom checks whether the message was sent by the given account.
// A zero userID only matches on email.
func (m *Message) IsFrom(email string, userID int64) bool {
	if email != "" && m.SenderEmail == email {
		return true
	}
	return userID != 0 && m.SenderID == userID
}

// Event is one entry of the source platform's event queue.
// Message is nil for every non-message event type.
type Event struct {
	ID      int64
	Type    string
	Message *Message
}

// EventTypeMessage is the only event type the relay acts on
const EventTypeMessage = "message"
