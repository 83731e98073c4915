package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	responder
	acks, nacks int
}

func (m *fakeMessage) ID() string                 { return "m-1" }
func (m *fakeMessage) Topic() string              { return "notification.dispatch" }
func (m *fakeMessage) Key() []byte                { return nil }
func (m *fakeMessage) Body() []byte               { return []byte(`{}`) }
func (m *fakeMessage) Headers() map[string]string { return nil }
func (m *fakeMessage) Timestamp() time.Time       { return time.Time{} }

func (m *fakeMessage) Ack(context.Context) error {
	if m.claim() {
		m.acks++
	}
	return nil
}

func (m *fakeMessage) Nack(context.Context) error {
	if m.claim() {
		m.nacks++
	}
	return nil
}

func TestDeliver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		autoAck   bool
		handler   Handler
		wantErr   bool
		wantAcks  int
		wantNacks int
	}{
		{
			name:     "ack on success",
			autoAck:  true,
			handler:  func(context.Context, Message) error { return nil },
			wantAcks: 1,
		},
		{
			name:      "nack on error",
			autoAck:   true,
			handler:   func(context.Context, Message) error { return errors.New("boom") },
			wantNacks: 1,
		},
		{
			name:      "panic becomes nack",
			autoAck:   true,
			handler:   func(context.Context, Message) error { panic("boom") },
			wantNacks: 1,
		},
		{
			name:    "manual ack leaves settling to handler",
			autoAck: false,
			handler: func(context.Context, Message) error { return errors.New("boom") },
			wantErr: true,
		},
		{
			name:    "handler settled first",
			autoAck: true,
			handler: func(ctx context.Context, msg Message) error {
				return errors.Join(msg.Ack(ctx), errors.New("late failure"))
			},
			wantErr:  true,
			wantAcks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &fakeMessage{}
			err := deliver(t.Context(), "test", tt.handler, msg, tt.autoAck)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAcks, msg.acks)
			assert.Equal(t, tt.wantNacks, msg.nacks)
		})
	}
}

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	_, err := NewFromDriver(t.Context(), "rabbit", FactoryOptions{})
	require.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(t.Context(), "kafka", FactoryOptions{})
	require.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(t.Context(), " NATS ", FactoryOptions{})
	require.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(t.Context(), "pubsub", FactoryOptions{})
	require.ErrorIs(t, err, ErrPubSubProjectIDRequired)

	m, err := NewFromDriver(t.Context(), "nsq", FactoryOptions{})
	require.NoError(t, err)
	_, err = m.Publish(t.Context(), "topic", OutgoingMessage{})
	require.ErrorIs(t, err, ErrNSQProducerRequired)
	require.NoError(t, m.Close())
}

func TestConsumeOptions(t *testing.T) {
	t.Parallel()

	co := newConsumeOptions(WithConcurrency(0), WithGroup("irnotify"), WithAutoAck(true), nil)
	assert.Equal(t, 1, co.concurrency)
	assert.Equal(t, "irnotify", co.group)
	assert.True(t, co.autoAck)
}
