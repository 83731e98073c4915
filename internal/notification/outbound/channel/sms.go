package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"golang.org/x/time/rate"
)

const defaultSMSMaxLength = 640

type SMSConfig struct {
	BaseURL       string
	APIKey        string
	SenderID      string
	RatePerSecond float64
	// MaxLength caps the message in characters; longer texts are cut.
	MaxLength int
}

// SMS posts plain text messages to an HTTP SMS gateway.
type SMS struct {
	client  *http.Client
	ins     instrument.Instrumentation
	cfg     SMSConfig
	limiter *rate.Limiter
	tmpl    *texttemplate.Template
}

type smsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type smsResponse struct {
	ID string `json:"id"`
}

func NewSMS(client *http.Client, ins instrument.Instrumentation, cfg SMSConfig) (*SMS, error) {
	tmpl, err := parseText("sms.txt")
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = defaultSMSMaxLength
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &SMS{
		client:  client,
		ins:     ins,
		cfg:     cfg,
		limiter: newLimiter(cfg.RatePerSecond),
		tmpl:    tmpl,
	}, nil
}

func (s *SMS) Channel() entity.Channel { return entity.ChannelSMS }

func (s *SMS) Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error) {
	sender := s.cfg.SenderID
	if sender == "" {
		sender = defaultSender
	}

	text, err := execute(s.tmpl, "sms.txt", newRenderData(sender, events, rcp))
	if err != nil {
		return entity.Payload{}, err
	}

	var to []string
	if phone := strings.TrimSpace(rcp.Phone); phone != "" {
		to = []string{phone}
	}

	return entity.Payload{
		Channel:  entity.ChannelSMS,
		UserID:   rcp.UserID,
		To:       to,
		Body:     truncate(strings.TrimSpace(text), s.cfg.MaxLength),
		EventIDs: eventIDs(events),
	}, nil
}

func (s *SMS) Send(ctx context.Context, p entity.Payload) entity.Outcome {
	ctx, span := s.ins.Tracer("notification.outbound.channel").Start(ctx, "SMS.Send")
	defer span.End()

	if s.cfg.BaseURL == "" || s.cfg.APIKey == "" {
		return fail(span, fmt.Errorf("%w: sms gateway credentials are missing", entity.ErrConfiguration))
	}
	if len(p.To) == 0 {
		return fail(span, fmt.Errorf("%w: recipient has no phone number", entity.ErrConfiguration))
	}

	if err := waitTurn(ctx, s.limiter); err != nil {
		return fail(span, err)
	}

	body, err := json.Marshal(smsRequest{From: s.cfg.SenderID, To: p.To[0], Text: p.Body})
	if err != nil {
		return fail(span, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fail(span, fmt.Errorf("%w: %w", entity.ErrConfiguration, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	var out smsResponse
	if err := doJSON(s.client, req, &out); err != nil {
		return fail(span, err)
	}

	return entity.Delivered(out.ID)
}

// doJSON performs req and decodes a 2xx JSON body into out. Any failure is a
// provider failure carrying the response text.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", entity.ErrProvider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", entity.ErrProvider, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", entity.ErrProvider, err)
	}
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= len("...") {
		return string(r[:max(limit, 0)])
	}
	return string(r[:limit-3]) + "..."
}
