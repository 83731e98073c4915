package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var (
	// ErrNATSURLRequired is returned when the server URL is missing.
	ErrNATSURLRequired = errors.New("messaging: nats url is required")
	// ErrNATSSubjectRequired is returned for an empty subject.
	ErrNATSSubjectRequired = errors.New("messaging: nats subject is required")
	// ErrHandlerRequired is returned when Consume gets a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// NATSConfig configures the NATS client.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a Messaging backed by core NATS subjects.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// NewNATS connects to the server at cfg.URL.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains every subscription and the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	var closeErr error
	for _, sub := range subs {
		closeErr = errors.Join(closeErr, sub.Drain())
	}
	closeErr = errors.Join(closeErr, n.conn.Drain())
	n.conn.Close()
	return closeErr
}

// Publish sends msg on the subject and flushes so the server has it on return.
func (n *NATS) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrNATSSubjectRequired
	}

	nmsg := nats.NewMsg(topic)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: topic, At: time.Now()}, nil
}

// Consume subscribes to the subject, in a queue group when WithGroup is set.
func (n *NATS) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrNATSSubjectRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, co.concurrency)

	sub, err := n.conn.QueueSubscribe(topic, co.group, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				//nolint:errcheck // failures are logged by deliver
				_ = deliver(ctx, DriverNATS, handler, &natsMessage{msg: m, receivedAt: time.Now()}, co.autoAck)
			}
		})
	}

	stop := func() error {
		err := sub.Drain()
		close(msgCh)
		wg.Wait()
		return err
	}

	if err := n.track(sub); err != nil {
		return errors.Join(err, stop())
	}

	<-ctx.Done()
	return errors.Join(ctx.Err(), stop())
}

func (n *NATS) track(sub *nats.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return io.ErrClosedPipe
	}
	n.subs = append(n.subs, sub)
	return nil
}

type natsMessage struct {
	responder
	msg        *nats.Msg
	receivedAt time.Time
}

func (m *natsMessage) ID() string           { return m.msg.Header.Get(nats.MsgIdHdr) }
func (m *natsMessage) Topic() string        { return m.msg.Subject }
func (m *natsMessage) Key() []byte          { return nil }
func (m *natsMessage) Body() []byte         { return m.msg.Data }
func (m *natsMessage) Timestamp() time.Time { return m.receivedAt }

func (m *natsMessage) Headers() map[string]string {
	if len(m.msg.Header) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.msg.Header))
	for k := range m.msg.Header {
		out[k] = m.msg.Header.Get(k)
	}
	return out
}

// Ack and Nack only reach the server for replyable messages; plain core NATS
// deliveries have nothing to settle.
func (m *natsMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.claim() {
		return nil
	}
	return ignoreNoReply(m.msg.Ack())
}

func (m *natsMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.claim() {
		return nil
	}
	return ignoreNoReply(m.msg.Nak())
}

func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
