package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/irnotify/internal/notification/usecase"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/messaging"
	"github.com/shandysiswandi/irnotify/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishDispatched(ctx context.Context, msg usecase.DispatchedEvent) error {
	ctx, span := m.ins.Tracer("notification.outbound.mq").Start(ctx, "PublishDispatched")
	defer span.End()

	body, err := json.Marshal(event.NotificationDispatchedMessage{
		UserID:    msg.UserID,
		Channel:   msg.Channel.String(),
		EventIDs:  msg.EventIDs,
		Status:    msg.Status.String(),
		MessageID: msg.MessageID,
		Error:     msg.Error,
		At:        msg.At,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, event.NotificationDispatchedDestination, messaging.OutgoingMessage{
		Key:     []byte(msg.Channel.String()),
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: cID},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
