package entity

import (
	"errors"
	"time"
)

// Dispatch failure taxonomy. Outcomes wrap one of these with %w.
var (
	// ErrTransport marks an unreachable store or network failure.
	ErrTransport = errors.New("transport failure")
	// ErrConfiguration marks missing credentials or recipient details.
	ErrConfiguration = errors.New("configuration failure")
	// ErrProvider marks a non-success response from the channel provider.
	ErrProvider = errors.New("provider failure")
	// ErrPermission marks a delivery the recipient has not allowed.
	ErrPermission = errors.New("permission denied")
)

// Payload is a rendered, channel specific message for one recipient.
type Payload struct {
	Channel Channel
	UserID  int64
	// To holds the email address, phone number or device tokens.
	To      []string
	Subject string
	Title   string
	Body    string
	HTML    string
	// Data is structured data forwarded to push providers.
	Data       map[string]string
	EventIDs   []int64
	Permission DesktopPermission
}

// Outcome is the uniform result of a delivery. Soft failures are not logged.
type Outcome struct {
	Success   bool
	MessageID string
	Error     string
	Soft      bool
	Cause     error
}

func Delivered(messageID string) Outcome {
	return Outcome{Success: true, MessageID: messageID}
}

func Failed(err error) Outcome {
	return Outcome{Error: err.Error(), Cause: err, Soft: errors.Is(err, ErrPermission)}
}

// Skipped is a soft failure: nothing was delivered and nothing is logged.
func Skipped(err error) Outcome {
	return Outcome{Error: err.Error(), Cause: err, Soft: true}
}

// Status maps the outcome to the log status.
func (o Outcome) Status() AttemptStatus {
	if o.Success {
		return AttemptStatusSent
	}
	return AttemptStatusFailed
}

// DesktopNotification is pushed to open browser sessions.
type DesktopNotification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EventIDs  []int64   `json:"event_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// CycleReport summarizes one orchestrator run.
type CycleReport struct {
	ID                int64     `json:"id"`
	Trigger           Trigger   `json:"trigger"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Pairs             int64     `json:"pairs"`
	Sent              int64     `json:"sent"`
	Failed            int64     `json:"failed"`
	SkippedTransport  int64     `json:"skipped_transport"`
	SkippedEmpty      int64     `json:"skipped_empty"`
	SkippedDedup      int64     `json:"skipped_dedup"`
	SkippedPermission int64     `json:"skipped_permission"`
	Abandoned         int64     `json:"abandoned"`
	LogFailures       int64     `json:"log_failures"`
	LoggedAttempts    int64     `json:"logged_attempts"`
}
