// Package messaging publishes and consumes broker messages behind one
// interface. NATS, Kafka, NSQ and Google Cloud Pub/Sub are supported; the driver is picked at
// startup from configuration.
package messaging
