package data

import (
	"context"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/infra/zulip"
)

// zulipRepo implements the source repository on the rate-limited client
type zulipRepo struct {
	client *zulip.Client
}

// NewZulipRepo creates a new Zulip source repository
func NewZulipRepo(client *zulip.Client) repo.SourceRepo {
	return &zulipRepo{client: client}
}

// GetOwnUserID resolves the relay account's user id
func (r *zulipRepo) GetOwnUserID(ctx context.Context) (int64, error) {
	user, err := r.client.GetOwnUser(ctx)
	if err != nil {
		return 0, err
	}
	return user.UserID, nil
}

// GetSubscriptions lists the account's subscriptions
func (r *zulipRepo) GetSubscriptions(ctx context.Context) ([]repo.Subscription, error) {
	subs, err := r.client.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]repo.Subscription, 0, len(subs))
	for _, s := range subs {
		result = append(result, repo.Subscription{
			StreamID: s.StreamID,
			Name:     s.Name,
			IsMuted:  s.Muted(),
		})
	}
	return result, nil
}

// Register creates a new message event queue
func (r *zulipRepo) Register(ctx context.Context) (domain.Cursor, error) {
	q, err := r.client.Register(ctx)
	if err != nil {
		return domain.Cursor{}, err
	}
	return domain.Cursor{
		QueueID:     q.QueueID,
		LastEventID: q.LastEventID,
		UpdatedAt:   time.Now(),
	}, nil
}

// GetEvents long-polls the queue
func (r *zulipRepo) GetEvents(ctx context.Context, cursor domain.Cursor, wait time.Duration) ([]domain.Event, error) {
	events, err := r.client.GetEvents(ctx, cursor.QueueID, cursor.LastEventID, wait)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Event, 0, len(events))
	for i := range events {
		result = append(result, toDomainEvent(&events[i]))
	}
	return result, nil
}

// IsQueueExpired reports whether the server dropped the queue
func (r *zulipRepo) IsQueueExpired(err error) bool {
	return zulip.IsBadEventQueue(err)
}

func toDomainEvent(e *zulip.Event) domain.Event {
	ev := domain.Event{ID: e.ID, Type: e.Type}
	if e.Type == domain.EventTypeMessage && e.Message != nil {
		ev.Message = toDomainMessage(e.Message, e.MessageFlags())
	}
	return ev
}

func toDomainMessage(m *zulip.Message, flags []string) *domain.Message {
	msg := &domain.Message{
		ID:             m.ID,
		SenderID:       m.SenderID,
		SenderEmail:    m.SenderEmail,
		SenderFullName: m.SenderFullName,
		Content:        m.Content,
		Flags:          flags,
	}

	switch m.Type {
	case "stream":
		msg.Kind = domain.MessageKindStream
		msg.StreamID = m.StreamID
		msg.StreamName = m.DisplayRecipient.Name
		msg.Topic = m.TopicName()
	case "private":
		msg.Kind = domain.MessageKindPrivate
		for _, u := range m.DisplayRecipient.Users {
			msg.Recipients = append(msg.Recipients, domain.Recipient{
				ID:       u.ID,
				Email:    u.Email,
				FullName: u.FullName,
			})
		}
	}
	return msg
}
