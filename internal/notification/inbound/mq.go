package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goroutine"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/messaging"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string // kafka group, nats queue group, nsq channel, pubsub subscription
		handler messaging.Handler
	}{
		{
			name:    event.NotificationDispatchRequestedConsumerNotification,
			topic:   event.NotificationDispatchRequestedDestination,
			group:   event.NotificationDispatchRequestedConsumerNotification,
			handler: mqHandler.DispatchRequested,
		},
	}

	for _, consumer := range consumers {
		if len(enableConsumerNames) > 0 && slices.Contains(enableConsumerNames, consumer.name) {
			routine.Go(ctx, consumer.name, func(pCtx context.Context) error {
				slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
				return messenger.Consume(pCtx,
					consumer.topic,
					consumer.handler,
					messaging.WithGroup(consumer.group),
					messaging.WithAutoAck(true),
					// one cycle at a time; the run lock rejects overlaps anyway
					messaging.WithConcurrency(1),
					messaging.WithMaxInFlight(1),
				)
			})
		}
	}
}
