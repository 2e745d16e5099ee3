package repo

import (
	"context"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// CursorRepo persists the event queue cursor
type CursorRepo interface {
	// Load returns the stored cursor, or a zero cursor when none is stored
	Load(ctx context.Context) (domain.Cursor, error)

	// Save stores the cursor (create or replace)
	Save(ctx context.Context, cursor domain.Cursor) error

	// Clear forgets the stored cursor
	Clear(ctx context.Context) error

	Close() error
}
