package domain

import "time"

// Cursor is the relay position in the source platform's event queue
type Cursor struct {
	QueueID     string
	LastEventID int64
	UpdatedAt   time.Time
}

// IsZero reports whether no queue has been registered yet
func (c Cursor) IsZero() bool {
	return c.QueueID == ""
}

// Advance returns the cursor moved to eventID.
// Event ids never move backwards, so a lower id leaves the cursor unchanged.
func (c Cursor) Advance(eventID int64) Cursor {
	if eventID <= c.LastEventID {
		return c
	}
	c.LastEventID = eventID
	c.UpdatedAt = time.Now()
	return c
}
