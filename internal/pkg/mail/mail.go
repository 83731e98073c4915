package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email.
type Message struct {
	// MessageID becomes the Message-ID header when set, e.g. "<id@host>".
	MessageID string
	// From overrides the configured sender.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// TextBody is used alone when HTMLBody is empty.
	TextBody string
	HTMLBody string
	// Headers are extra headers written after the standard ones.
	Headers map[string]string
}

// Mail sends messages through some provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
