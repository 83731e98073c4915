package inbound

import "time"

type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
}

type RemoveDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}

type CompanyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PreferenceResponse struct {
	Channel       string            `json:"channel"`
	Enabled       bool              `json:"enabled"`
	LookaheadDays int               `json:"lookahead_days"`
	Companies     []CompanyResponse `json:"companies"`
	Sectors       []string          `json:"sectors"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type PreferencesResponse struct {
	Preferences []PreferenceResponse `json:"preferences"`
}

type PreferenceRequest struct {
	Channel       string   `json:"channel"`
	Enabled       bool     `json:"enabled"`
	LookaheadDays int      `json:"lookahead_days"`
	CompanyIDs    []int64  `json:"company_ids"`
	Sectors       []string `json:"sectors"`
}

type PreferencesUpdateRequest struct {
	Preferences []PreferenceRequest `json:"preferences"`
}

type AttemptResponse struct {
	ID        int64     `json:"id"`
	Channel   string    `json:"channel"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
}

// EventAttemptsResponse answers whether an event reached the caller.
type EventAttemptsResponse struct {
	EventID  int64             `json:"event_id"`
	Notified bool              `json:"notified"`
	Attempts []AttemptResponse `json:"attempts"`
}

type CycleReportResponse struct {
	ID                int64     `json:"id"`
	Trigger           string    `json:"trigger"`
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

// DispatchResponse is returned by a manual cycle.
type DispatchResponse struct {
	CycleReportResponse
}

func (DispatchResponse) Message() string { return "dispatch cycle completed" }

type CycleReportsResponse struct {
	Cycles []CycleReportResponse `json:"cycles"`
}

type DesktopPermissionRequest struct {
	Permission string `json:"permission"`
}
