package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/irnotify/internal/notification/usecase"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/messaging"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers map[string]string) context.Context {
	if cID := headers[keyOfCorrelationID]; cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// DispatchRequested runs a dispatch cycle for a queued "send now" request.
// A malformed body is acked and dropped.
func (h *MQHandler) DispatchRequested(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "DispatchRequested")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: notification dispatch requested", "msg_body", string(body))

	var payload event.NotificationDispatchRequestedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of notification dispatch requested", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeDispatchRequested(ctx, usecase.ConsumeDispatchRequestedInput{
		RequestedBy: payload.RequestedBy,
		Reason:      payload.Reason,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume notification dispatch requested", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
