package entity

import "time"

// Attempt is one immutable notification log row covering a single event.
type Attempt struct {
	ID        int64
	UserID    int64
	Channel   Channel
	EventID   int64
	Status    AttemptStatus
	MessageID string
	Error     string
	CreatedAt time.Time
}

// RecordAttempt is expanded into one Attempt per event id, all sharing the outcome.
type RecordAttempt struct {
	UserID    int64
	Channel   Channel
	EventIDs  []int64
	Status    AttemptStatus
	MessageID string
	Error     string
}
