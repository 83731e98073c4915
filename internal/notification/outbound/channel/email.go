package channel

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/mail"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"golang.org/x/time/rate"
)

type EmailConfig struct {
	// SenderName signs the message footer.
	SenderName string
	// MessageIDDomain is the right hand side of generated Message-ID headers.
	MessageIDDomain string
	RatePerSecond   float64
}

// Email delivers an HTML digest through a mail.Mail transport.
type Email struct {
	client  mail.Mail
	uuid    uid.StringID
	ins     instrument.Instrumentation
	cfg     EmailConfig
	limiter *rate.Limiter
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func NewEmail(client mail.Mail, uuid uid.StringID, ins instrument.Instrumentation, cfg EmailConfig) (*Email, error) {
	html, err := parseHTML("email.html")
	if err != nil {
		return nil, err
	}
	text, err := parseText("text.txt")
	if err != nil {
		return nil, err
	}

	if cfg.SenderName == "" {
		cfg.SenderName = defaultSender
	}
	if cfg.MessageIDDomain == "" {
		cfg.MessageIDDomain = "irnotify.local"
	}

	return &Email{
		client:  client,
		uuid:    uuid,
		ins:     ins,
		cfg:     cfg,
		limiter: newLimiter(cfg.RatePerSecond),
		html:    html,
		text:    text,
	}, nil
}

func (e *Email) Channel() entity.Channel { return entity.ChannelEmail }

func (e *Email) Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error) {
	data := newRenderData(e.cfg.SenderName, events, rcp)

	htmlBody, err := execute(e.html, "email.html", data)
	if err != nil {
		return entity.Payload{}, err
	}
	textBody, err := execute(e.text, "text.txt", data)
	if err != nil {
		return entity.Payload{}, err
	}

	var to []string
	if addr := strings.TrimSpace(rcp.Email); addr != "" {
		to = []string{addr}
	}

	return entity.Payload{
		Channel:  entity.ChannelEmail,
		UserID:   rcp.UserID,
		To:       to,
		Subject:  subject(len(events)),
		Body:     textBody,
		HTML:     htmlBody,
		EventIDs: eventIDs(events),
	}, nil
}

func (e *Email) Send(ctx context.Context, p entity.Payload) entity.Outcome {
	ctx, span := e.ins.Tracer("notification.outbound.channel").Start(ctx, "Email.Send")
	defer span.End()

	if e.client == nil {
		return fail(span, fmt.Errorf("%w: email transport is not configured", entity.ErrConfiguration))
	}
	if len(p.To) == 0 {
		return fail(span, fmt.Errorf("%w: recipient has no email address", entity.ErrConfiguration))
	}

	if err := waitTurn(ctx, e.limiter); err != nil {
		return fail(span, err)
	}

	id := e.uuid.Generate()
	err := e.client.Send(ctx, mail.Message{
		MessageID: "<" + id + "@" + e.cfg.MessageIDDomain + ">",
		To:        p.To,
		Subject:   p.Subject,
		TextBody:  p.Body,
		HTMLBody:  p.HTML,
		Headers:   map[string]string{"X-Event-Ids": joinIDs(p.EventIDs)},
	})
	if err != nil {
		return fail(span, fmt.Errorf("%w: %w", entity.ErrProvider, err))
	}

	return entity.Delivered(id)
}
