package messaging

type consumeOptions struct {
	concurrency int
	autoAck     bool
	// group is the Kafka consumer group, NATS queue group, NSQ channel or
	// Pub/Sub subscription.
	group       string
	maxInFlight int
}

// ConsumeOption configures Consume.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	return co
}

// WithConcurrency sets how many handler goroutines run in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithGroup shares the load of a topic between consumers of the same group.
// Kafka and NSQ require it.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithAutoAck acks on a nil handler error and nacks otherwise.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

// WithMaxInFlight caps unacknowledged NSQ messages.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}
