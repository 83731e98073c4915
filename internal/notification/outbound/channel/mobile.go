package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"golang.org/x/time/rate"
)

type PushConfig struct {
	BaseURL       string
	ServerKey     string
	RatePerSecond float64
}

// Mobile sends push notifications to the recipient's registered devices.
type Mobile struct {
	client  *http.Client
	ins     instrument.Instrumentation
	cfg     PushConfig
	limiter *rate.Limiter
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type pushRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    pushNotification  `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	MulticastID int64  `json:"multicast_id"`
	MessageID   string `json:"message_id"`
	Success     int    `json:"success"`
	Failure     int    `json:"failure"`
}

func NewMobile(client *http.Client, ins instrument.Instrumentation, cfg PushConfig) *Mobile {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Mobile{
		client:  client,
		ins:     ins,
		cfg:     cfg,
		limiter: newLimiter(cfg.RatePerSecond),
	}
}

func (m *Mobile) Channel() entity.Channel { return entity.ChannelMobile }

func (m *Mobile) Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error) {
	ids := eventIDs(events)

	return entity.Payload{
		Channel:  entity.ChannelMobile,
		UserID:   rcp.UserID,
		To:       rcp.DeviceTokens,
		Title:    subject(len(events)),
		Body:     summary(events, rcp.Location()),
		Data:     map[string]string{"type": "ir_events", "event_ids": joinIDs(ids)},
		EventIDs: ids,
	}, nil
}

func (m *Mobile) Send(ctx context.Context, p entity.Payload) entity.Outcome {
	ctx, span := m.ins.Tracer("notification.outbound.channel").Start(ctx, "Mobile.Send")
	defer span.End()

	if m.cfg.BaseURL == "" || m.cfg.ServerKey == "" {
		return fail(span, fmt.Errorf("%w: push gateway credentials are missing", entity.ErrConfiguration))
	}
	if len(p.To) == 0 {
		return fail(span, fmt.Errorf("%w: recipient has no registered mobile device", entity.ErrConfiguration))
	}

	if err := waitTurn(ctx, m.limiter); err != nil {
		return fail(span, err)
	}

	body, err := json.Marshal(pushRequest{
		RegistrationIDs: p.To,
		Notification:    pushNotification{Title: p.Title, Body: p.Body},
		Data:            p.Data,
	})
	if err != nil {
		return fail(span, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fail(span, fmt.Errorf("%w: %w", entity.ErrConfiguration, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+m.cfg.ServerKey)

	var out pushResponse
	if err := doJSON(m.client, req, &out); err != nil {
		return fail(span, err)
	}
	if out.Success == 0 && out.Failure > 0 {
		return fail(span, fmt.Errorf("%w: all %d devices rejected the notification", entity.ErrProvider, out.Failure))
	}

	id := out.MessageID
	if id == "" && out.MulticastID != 0 {
		id = strconv.FormatInt(out.MulticastID, 10)
	}
	return entity.Delivered(id)
}

// summary is a one line preview listing the first events.
func summary(events []entity.Event, loc *time.Location) string {
	const shown = 2

	parts := make([]string, 0, shown)
	for i, e := range events {
		if i == shown {
			break
		}
		parts = append(parts, e.Name+" on "+e.StartAt.In(loc).Format("02 Jan 15:04"))
	}

	out := strings.Join(parts, "; ")
	if rest := len(events) - shown; rest > 0 {
		out += fmt.Sprintf(" and %d more", rest)
	}
	return out
}
