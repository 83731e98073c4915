package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrKafkaBrokersRequired is returned when no brokers are configured.
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	// ErrKafkaTopicRequired is returned for an empty topic.
	ErrKafkaTopicRequired = errors.New("messaging: kafka topic is required")
	// ErrKafkaGroupRequired is returned when Consume is called without WithGroup.
	ErrKafkaGroupRequired = errors.New("messaging: kafka consumer group is required")
)

// KafkaConfig configures the Kafka client.
type KafkaConfig struct {
	Brokers []string
	// Dialer is optional; kafka-go's default dialer is used when nil.
	Dialer *kafka.Dialer
}

// Kafka is a Messaging backed by kafka-go. One writer is kept per topic.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers map[*kafka.Reader]struct{}
	closed  bool
}

// NewKafka validates cfg; connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string(nil), cfg.Brokers...),
		dialer:  cfg.Dialer,
		writers: make(map[string]*kafka.Writer),
		readers: make(map[*kafka.Reader]struct{}),
	}, nil
}

// Close closes every reader and writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers, readers := k.writers, k.readers
	k.writers, k.readers = nil, nil
	k.mu.Unlock()

	var closeErr error
	for r := range readers {
		closeErr = errors.Join(closeErr, r.Close())
	}
	for _, w := range writers {
		closeErr = errors.Join(closeErr, w.Close())
	}
	return closeErr
}

// Publish writes msg synchronously to the topic.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrKafkaTopicRequired
	}

	w, err := k.writer(topic)
	if err != nil {
		return PublishResult{}, err
	}

	kmsg := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for key, v := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := w.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: topic, At: kmsg.Time}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, io.ErrClosedPipe
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	//nolint:staticcheck // WriterConfig is the only way to pass a custom Dialer
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer:   k.dialer,
	})
	k.writers[topic] = w
	return w, nil
}

// Consume reads the topic as part of the consumer group until ctx is done.
// Offsets are committed on Ack; a Nack leaves the offset uncommitted so the
// message is redelivered after a rebalance or restart.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrKafkaTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})
	if err := k.track(reader); err != nil {
		return errors.Join(err, reader.Close())
	}
	defer k.untrack(reader)

	msgCh := make(chan kafka.Message)
	fetchErr := make(chan error, 1)

	go func() {
		defer close(msgCh)
		for {
			m, err := reader.FetchMessage(ctx)
			if err != nil {
				fetchErr <- err
				return
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				fetchErr <- ctx.Err()
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // failures are logged by deliver
				_ = deliver(ctx, DriverKafka, handler, &kafkaMessage{reader: reader, msg: m}, co.autoAck)
			}
		})
	}

	err := <-fetchErr
	wg.Wait()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(err, reader.Close())
	}
	return errors.Join(fmt.Errorf("messaging: kafka consume: %w", err), reader.Close())
}

func (k *Kafka) track(r *kafka.Reader) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return io.ErrClosedPipe
	}
	k.readers[r] = struct{}{}
	return nil
}

func (k *Kafka) untrack(r *kafka.Reader) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.readers != nil {
		delete(k.readers, r)
	}
}

type kafkaMessage struct {
	responder
	reader *kafka.Reader
	msg    kafka.Message
}

func (m *kafkaMessage) ID() string {
	return m.msg.Topic + "/" + strconv.Itoa(m.msg.Partition) + "/" + strconv.FormatInt(m.msg.Offset, 10)
}

func (m *kafkaMessage) Topic() string        { return m.msg.Topic }
func (m *kafkaMessage) Key() []byte          { return m.msg.Key }
func (m *kafkaMessage) Body() []byte         { return m.msg.Value }
func (m *kafkaMessage) Timestamp() time.Time { return m.msg.Time }

func (m *kafkaMessage) Headers() map[string]string {
	if len(m.msg.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.msg.Headers))
	for _, h := range m.msg.Headers {
		if _, seen := out[h.Key]; !seen {
			out[h.Key] = string(h.Value)
		}
	}
	return out
}

func (m *kafkaMessage) Ack(ctx context.Context) error {
	if !m.claim() {
		return nil
	}
	return m.reader.CommitMessages(ctx, m.msg)
}

func (m *kafkaMessage) Nack(context.Context) error {
	m.claim()
	return nil
}
