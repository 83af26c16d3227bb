package notify

import "context"

// Message is one rendered-or-renderable notification.
type Message struct {
	Template   string         `json:"template"`
	Recipients []string       `json:"recipients"`
	Payload    map[string]any `json:"payload"`
}

// Sender delivers a message over some transport. Implementations are
// called from background workers and must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops everything. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }
