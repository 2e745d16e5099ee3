package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// cursorRepo stores the single event queue cursor in SQLite
type cursorRepo struct {
	db *sql.DB
}

// NewCursorRepo opens (or creates) the cursor database
func NewCursorRepo(dbPath string) (repo.CursorRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One row; the CHECK keeps it that way
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS event_cursor (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			queue_id TEXT NOT NULL,
			last_event_id INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &cursorRepo{db: db}, nil
}

// Load returns the stored cursor or a zero cursor
func (r *cursorRepo) Load(ctx context.Context) (domain.Cursor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT queue_id, last_event_id, updated_at FROM event_cursor WHERE id = 1
	`)

	var c domain.Cursor
	var updatedAt int64
	err := row.Scan(&c.QueueID, &c.LastEventID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cursor{}, nil
	}
	if err != nil {
		return domain.Cursor{}, fmt.Errorf("failed to query cursor: %w", err)
	}
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return c, nil
}

// Save stores the cursor
func (r *cursorRepo) Save(ctx context.Context, c domain.Cursor) error {
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO event_cursor (id, queue_id, last_event_id, updated_at)
		VALUES (1, ?, ?, ?)
	`, c.QueueID, c.LastEventID, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// Clear forgets the stored cursor
func (r *cursorRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_cursor`); err != nil {
		return fmt.Errorf("failed to clear cursor: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *cursorRepo) Close() error {
	return r.db.Close()
}
