package zulip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Extra time given to the HTTP request beyond the server-side long-poll wait
const eventsTimeoutSlack = 10 * time.Second

// User is the authenticated account
type User struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Subscription is one stream the account is subscribed to
type Subscription struct {
	StreamID int64  `json:"stream_id"`
	Name     string `json:"name"`
	IsMuted  bool   `json:"is_muted"`
	// Older servers report in_home_view instead of is_muted
	InHomeView *bool `json:"in_home_view,omitempty"`
}

// Muted reports the mute state regardless of server version
func (s Subscription) Muted() bool {
	if s.IsMuted {
		return true
	}
	return s.InHomeView != nil && !*s.InHomeView
}

// Queue is a registered event queue
type Queue struct {
	QueueID     string `json:"queue_id"`
	LastEventID int64  `json:"last_event_id"`
}

// RecipientUser is one participant of a private message
type RecipientUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// DisplayRecipient is a stream name for stream messages and a user list for
// private ones. Some servers send an object for either.
type DisplayRecipient struct {
	Name  string
	Users []RecipientUser
}

// UnmarshalJSON accepts a string, a list of users or a single object
func (d *DisplayRecipient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &d.Name)
	case '[':
		return json.Unmarshal(data, &d.Users)
	case '{':
		var obj struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Stream   string `json:"stream"`
			Email    string `json:"email"`
			FullName string `json:"full_name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		d.Name = obj.Name
		if d.Name == "" {
			d.Name = obj.Stream
		}
		if obj.ID != 0 || obj.Email != "" {
			d.Users = []RecipientUser{{ID: obj.ID, Email: obj.Email, FullName: obj.FullName}}
		}
		return nil
	default:
		return fmt.Errorf("unexpected display_recipient: %s", truncate(string(data), 40))
	}
}

// Message is a message payload as delivered in events
type Message struct {
	ID               int64            `json:"id"`
	Type             string           `json:"type"` // stream or private
	SenderID         int64            `json:"sender_id"`
	SenderEmail      string           `json:"sender_email"`
	SenderFullName   string           `json:"sender_full_name"`
	StreamID         int64            `json:"stream_id"`
	Subject          string           `json:"subject"`
	Topic            string           `json:"topic"`
	DisplayRecipient DisplayRecipient `json:"display_recipient"`
	Content          string           `json:"content"`
	Flags            []string         `json:"flags"`
}

// TopicName returns the topic, preferring the legacy subject field
func (m *Message) TopicName() string {
	if m.Subject != "" {
		return m.Subject
	}
	return m.Topic
}

// Event is one queue event. Flags live beside the message, not inside it.
type Event struct {
	ID      int64    `json:"id"`
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Flags   []string `json:"flags,omitempty"`
}

// MessageFlags returns the event flags, falling back to the message's own
func (e *Event) MessageFlags() []string {
	if len(e.Flags) > 0 {
		return e.Flags
	}
	if e.Message != nil {
		return e.Message.Flags
	}
	return nil
}

// GetOwnUser fetches the authenticated account
func (c *Client) GetOwnUser(ctx context.Context) (*User, error) {
	body, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/v1/users/me"})
	if err != nil {
		return nil, fmt.Errorf("get own user: %w", err)
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode own user: %w", err)
	}
	return &user, nil
}

// GetSubscriptions lists the account's stream subscriptions
func (c *Client) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	body, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/v1/users/me/subscriptions"})
	if err != nil {
		return nil, fmt.Errorf("get subscriptions: %w", err)
	}
	var resp struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return resp.Subscriptions, nil
}

// Register creates an event queue for message events with rendered HTML content
func (c *Client) Register(ctx context.Context) (*Queue, error) {
	params := url.Values{}
	params.Set("event_types", `["message"]`)
	params.Set("apply_markdown", "true")

	body, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/v1/register", Params: params})
	if err != nil {
		return nil, fmt.Errorf("register queue: %w", err)
	}
	var queue Queue
	if err := json.Unmarshal(body, &queue); err != nil {
		return nil, fmt.Errorf("decode register response: %w", err)
	}
	if queue.QueueID == "" {
		return nil, fmt.Errorf("register queue: empty queue_id")
	}
	return &queue, nil
}

// GetEvents long-polls for events after lastEventID. The server holds the
// request for at most wait.
func (c *Client) GetEvents(ctx context.Context, queueID string, lastEventID int64, wait time.Duration) ([]Event, error) {
	params := url.Values{}
	params.Set("queue_id", queueID)
	params.Set("last_event_id", strconv.FormatInt(lastEventID, 10))
	params.Set("dont_block", "false")
	if wait > 0 {
		params.Set("timeout", strconv.Itoa(int(wait/time.Second)))
	}

	body, err := c.Do(ctx, Request{
		Method:  http.MethodGet,
		Path:    "/api/v1/events",
		Params:  params,
		Timeout: wait + eventsTimeoutSlack,
	})
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	var resp struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		ev, err := c.decodeEvent(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeEvent decodes one queue event. A payload that does not match the
// expected shape is reduced to its id and type so the queue can move past it.
func (c *Client) decodeEvent(raw json.RawMessage) (Event, error) {
	var ev Event
	err := json.Unmarshal(raw, &ev)
	if err == nil {
		return ev, nil
	}

	var head struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	if headErr := json.Unmarshal(raw, &head); headErr != nil {
		return Event{}, fmt.Errorf("decode event: %w", headErr)
	}
	c.log.Warn().
		Err(err).
		Int64("event_id", head.ID).
		Str("type", head.Type).
		Msg("Event payload not understood, skipping its content")
	return Event{ID: head.ID, Type: head.Type}, nil
}
