package repo

import (
	"context"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// Subscription is the relay account's membership in one stream
type Subscription struct {
	StreamID int64
	Name     string
	IsMuted  bool
}

// SourceRepo is the source platform (Zulip) interface.
// All calls go through the rate-limited client.
type SourceRepo interface {
	// GetOwnUserID resolves the relay account's user id
	GetOwnUserID(ctx context.Context) (int64, error)

	// GetSubscriptions lists the streams the account is subscribed to
	GetSubscriptions(ctx context.Context) ([]Subscription, error)

	// Register creates a new message event queue
	Register(ctx context.Context) (domain.Cursor, error)

	// GetEvents long-polls the queue for events after the cursor.
	// wait bounds how long the server may hold the request.
	GetEvents(ctx context.Context, cursor domain.Cursor, wait time.Duration) ([]domain.Event, error)

	// IsQueueExpired reports whether err means the server dropped the queue
	IsQueueExpired(err error) bool
}
