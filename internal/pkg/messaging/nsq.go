package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQTopicRequired is returned for an empty topic.
	ErrNSQTopicRequired = errors.New("messaging: nsq topic is required")
	// ErrNSQChannelRequired is returned when Consume is called without WithGroup.
	ErrNSQChannelRequired = errors.New("messaging: nsq channel is required")
	// ErrNSQProducerRequired is returned by Publish when no nsqd address was configured.
	ErrNSQProducerRequired = errors.New("messaging: nsq producer address is required")
	// ErrNSQConsumerAddrsRequired is returned by Consume when neither nsqd nor lookupd addresses are set.
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq nsqd or lookupd addresses are required")
)

// NSQConfig configures the NSQ client. Consumers prefer lookupd when both
// address lists are set.
type NSQConfig struct {
	ProducerAddr string
	NSQDAddrs    []string
	LookupdAddrs []string
}

// NSQ is a Messaging backed by go-nsq.
type NSQ struct {
	producer     *nsq.Producer
	nsqdAddrs    []string
	lookupdAddrs []string

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ creates the producer when cfg.ProducerAddr is set.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	n := &NSQ{
		nsqdAddrs:    append([]string(nil), cfg.NSQDAddrs...),
		lookupdAddrs: append([]string(nil), cfg.LookupdAddrs...),
	}

	if cfg.ProducerAddr != "" {
		p, err := nsq.NewProducer(cfg.ProducerAddr, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
		}
		p.SetLoggerLevel(nsq.LogLevelError)
		n.producer = p
	}

	return n, nil
}

// Close stops every consumer, then the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		stopNSQConsumer(c)
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

// Publish sends the body to the topic. Headers and Key are not carried.
func (n *NSQ) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrNSQTopicRequired
	}
	if n.producer == nil {
		return PublishResult{}, ErrNSQProducerRequired
	}

	if err := n.producer.Publish(topic, msg.Body); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: topic, At: time.Now()}, nil
}

// Consume reads topic on the channel given by WithGroup until ctx is done.
func (n *NSQ) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrNSQTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if len(n.nsqdAddrs) == 0 && len(n.lookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrNSQChannelRequired
	}

	cfg := nsq.NewConfig()
	cfg.MaxInFlight = max(co.maxInFlight, co.concurrency)

	consumer, err := nsq.NewConsumer(topic, co.group, cfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)

	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return deliver(ctx, DriverNSQ, handler, &nsqMessage{topic: topic, msg: m}, co.autoAck)
	}), co.concurrency)

	if err := n.track(consumer); err != nil {
		stopNSQConsumer(consumer)
		return err
	}

	if len(n.lookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.lookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.nsqdAddrs)
	}
	if err != nil {
		stopNSQConsumer(consumer)
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		stopNSQConsumer(consumer)
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func stopNSQConsumer(c *nsq.Consumer) {
	c.Stop()
	<-c.StopChan
}

type nsqMessage struct {
	responder
	topic string
	msg   *nsq.Message
}

func (m *nsqMessage) ID() string                 { return string(m.msg.ID[:]) }
func (m *nsqMessage) Topic() string              { return m.topic }
func (m *nsqMessage) Key() []byte                { return nil }
func (m *nsqMessage) Body() []byte               { return m.msg.Body }
func (m *nsqMessage) Headers() map[string]string { return nil }
func (m *nsqMessage) Timestamp() time.Time       { return time.Unix(0, m.msg.Timestamp) }

func (m *nsqMessage) Ack(context.Context) error {
	if m.claim() {
		m.msg.Finish()
	}
	return nil
}

func (m *nsqMessage) Nack(context.Context) error {
	if m.claim() {
		m.msg.Requeue(-1)
	}
	return nil
}
