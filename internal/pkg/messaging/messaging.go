package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when the broker cannot honour a request.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// Messaging can publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher sends a message to a topic (NATS subject, Kafka, NSQ or Pub/Sub topic).
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks delivering messages from topic to handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto-ack a nil error acks and a non-nil
// error nacks; without it the handler must call Ack or Nack itself.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish. Key is used for Kafka partitioning.
// Headers are dropped by NSQ, which has no header support.
type OutgoingMessage struct {
	Key     []byte
	Body    []byte
	Headers map[string]string
}

// PublishResult describes an accepted publish. ID is empty when the broker
// does not assign one.
type PublishResult struct {
	ID    string
	Topic string
	At    time.Time
}

// Message is a received message.
type Message interface {
	ID() string
	Topic() string
	Key() []byte
	Body() []byte
	Headers() map[string]string
	Timestamp() time.Time
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}
