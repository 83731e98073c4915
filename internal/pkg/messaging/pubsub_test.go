package messaging

import (
	"context"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSub_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(t.Context(), PubSubConfig{})
	require.ErrorIs(t, err, ErrPubSubProjectIDRequired)

	p := &PubSub{}

	_, err = p.Publish(t.Context(), "", OutgoingMessage{})
	require.ErrorIs(t, err, ErrPubSubTopicRequired)

	_, err = p.Publish(t.Context(), "notification_dispatched", OutgoingMessage{})
	require.ErrorIs(t, err, ErrPubSubClientRequired)

	err = p.Consume(t.Context(), "notification_dispatch_requested", nil)
	require.ErrorIs(t, err, ErrHandlerRequired)

	handler := func(context.Context, Message) error { return nil }
	err = p.Consume(t.Context(), "", handler)
	require.ErrorIs(t, err, ErrPubSubTopicRequired)

	err = p.Consume(t.Context(), "notification_dispatch_requested", handler)
	require.ErrorIs(t, err, ErrPubSubClientRequired)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestPubSub_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	p := &PubSub{}
	_, err := p.Publish(ctx, "notification_dispatched", OutgoingMessage{})
	require.ErrorIs(t, err, context.Canceled)

	err = p.Consume(ctx, "notification_dispatch_requested", func(context.Context, Message) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestPubSubSubscription(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "notification", pubsubSubscription("notification_dispatch_requested", newConsumeOptions(WithGroup("notification"))))
	assert.Equal(t, "notification_dispatch_requested", pubsubSubscription("notification_dispatch_requested", newConsumeOptions()))
}

func TestPubSubMessage_KeyAndHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, pubsubAttributes(OutgoingMessage{Body: []byte("x")}))

	attrs := pubsubAttributes(OutgoingMessage{
		Key:     []byte("user-7"),
		Headers: map[string]string{"correlation_id": "cid-1"},
	})
	assert.Equal(t, map[string]string{"correlation_id": "cid-1", pubsubKeyAttribute: "user-7"}, attrs)

	published := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	m := &pubsubMessage{
		topic: "notification_dispatched",
		msg:   &pubsub.Message{ID: "ps-1", Data: []byte(`{}`), Attributes: attrs, PublishTime: published},
	}
	assert.Equal(t, "ps-1", m.ID())
	assert.Equal(t, "notification_dispatched", m.Topic())
	assert.Equal(t, []byte("user-7"), m.Key())
	assert.Equal(t, map[string]string{"correlation_id": "cid-1"}, m.Headers())
	assert.Equal(t, published, m.Timestamp())
	assert.Equal(t, []byte(`{}`), m.Body())

	bare := &pubsubMessage{msg: &pubsub.Message{}}
	assert.Nil(t, bare.Key())
	assert.Nil(t, bare.Headers())
}

func TestPubSubMessage_SettleAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	m := &pubsubMessage{msg: &pubsub.Message{}}
	require.ErrorIs(t, m.Ack(ctx), context.Canceled)
	require.ErrorIs(t, m.Nack(ctx), context.Canceled)
	assert.False(t, m.responded())
}

func TestPubSub_ClosedRejectsPublish(t *testing.T) {
	t.Parallel()

	p := &PubSub{client: &pubsub.Client{}, closed: true}
	_, err := p.publisher("notification_dispatched")
	require.ErrorIs(t, err, io.ErrClosedPipe)
}
