package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supported driver names.
const (
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
	DriverNSQ    = "nsq"
	DriverPubSub = "pubsub"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the configuration of every supported driver; only
// the selected one is read.
type FactoryOptions struct {
	NATS   NATSConfig
	Kafka  KafkaConfig
	NSQ    NSQConfig
	PubSub PubSubConfig
}

// NewFromDriver constructs the Messaging implementation named by driver.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNSQ:
		return NewNSQ(opts.NSQ)
	case DriverPubSub:
		return NewPubSub(ctx, opts.PubSub)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
