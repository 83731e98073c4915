package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var (
	// ErrPubSubProjectIDRequired is returned when neither a client nor a project id is given.
	ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")
	// ErrPubSubClientRequired is returned when the client is missing.
	ErrPubSubClientRequired = errors.New("messaging: pubsub client is required")
	// ErrPubSubTopicRequired is returned for an empty topic.
	ErrPubSubTopicRequired = errors.New("messaging: pubsub topic is required")
)

// pubsubKeyAttribute carries OutgoingMessage.Key, which Pub/Sub has no field for.
const pubsubKeyAttribute = "irnotify-key"

// PubSubConfig configures the Google Cloud Pub/Sub client. With
// PUBSUB_EMULATOR_HOST set the client talks to the emulator.
type PubSubConfig struct {
	ProjectID string
	// Client is used as is when set.
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub is a Messaging backed by Pub/Sub topics and subscriptions.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewPubSub creates a client for cfg.ProjectID unless cfg.Client is given.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client := cfg.Client
	if client == nil {
		if cfg.ProjectID == "" {
			return nil, ErrPubSubProjectIDRequired
		}

		c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
		if err != nil {
			return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
		}
		client = c
	}

	return &PubSub{client: client, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Close flushes and stops every publisher, then closes the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := p.publishers
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Publish sends msg to the topic and waits for the server id.
func (p *PubSub) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrPubSubTopicRequired
	}

	pub, err := p.publisher(topic)
	if err != nil {
		return PublishResult{}, err
	}

	id, err := pub.Publish(ctx, &pubsub.Message{
		Data:       msg.Body,
		Attributes: pubsubAttributes(msg),
	}).Get(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}

	return PublishResult{ID: id, Topic: topic, At: time.Now()}, nil
}

// Consume receives from the subscription named by WithGroup, or by topic when
// no group is set. The subscription must already exist.
func (p *PubSub) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	subscription := pubsubSubscription(topic, co)
	if subscription == "" {
		return ErrPubSubTopicRequired
	}
	if err := p.ensureOpen(); err != nil {
		return err
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		//nolint:errcheck // failures are logged by deliver
		_ = deliver(ctx, DriverPubSub, handler, &pubsubMessage{topic: topic, msg: m}, co.autoAck)
	})
	if err != nil {
		return fmt.Errorf("messaging: pubsub receive %s: %w", subscription, err)
	}
	return ctx.Err()
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil, ErrPubSubClientRequired
	}
	if p.closed {
		return nil, io.ErrClosedPipe
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}

	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub, nil
}

func (p *PubSub) ensureOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return ErrPubSubClientRequired
	}
	if p.closed {
		return io.ErrClosedPipe
	}
	return nil
}

func pubsubSubscription(topic string, co consumeOptions) string {
	if co.group != "" {
		return co.group
	}
	return topic
}

func pubsubAttributes(msg OutgoingMessage) map[string]string {
	if len(msg.Headers) == 0 && len(msg.Key) == 0 {
		return nil
	}

	attrs := make(map[string]string, len(msg.Headers)+1)
	for k, v := range msg.Headers {
		attrs[k] = v
	}
	if len(msg.Key) > 0 {
		attrs[pubsubKeyAttribute] = string(msg.Key)
	}
	return attrs
}

type pubsubMessage struct {
	responder
	topic string
	msg   *pubsub.Message
}

func (m *pubsubMessage) ID() string           { return m.msg.ID }
func (m *pubsubMessage) Topic() string        { return m.topic }
func (m *pubsubMessage) Body() []byte         { return m.msg.Data }
func (m *pubsubMessage) Timestamp() time.Time { return m.msg.PublishTime }

func (m *pubsubMessage) Key() []byte {
	if k, ok := m.msg.Attributes[pubsubKeyAttribute]; ok {
		return []byte(k)
	}
	return nil
}

func (m *pubsubMessage) Headers() map[string]string {
	out := make(map[string]string, len(m.msg.Attributes))
	for k, v := range m.msg.Attributes {
		if k != pubsubKeyAttribute {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (m *pubsubMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.claim() {
		m.msg.Ack()
	}
	return nil
}

// Nack asks the server to redeliver immediately.
func (m *pubsubMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.claim() {
		m.msg.Nack()
	}
	return nil
}
