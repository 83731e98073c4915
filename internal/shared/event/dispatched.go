package event

import "time"

const NotificationDispatchedDestination string = "notification_dispatched"

type NotificationDispatchedMessage struct {
	UserID    int64     `json:"user_id"`
	Channel   string    `json:"channel"`
	EventIDs  []int64   `json:"event_ids"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
