// Package notify delivers user-facing notifications when pipelines finish.
//
// Delivery is best effort. A failed notification never fails the pipeline
// that produced it; failures are logged and dropped.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/logging"
)

// Notifier publishes a notification.
type Notifier interface {
	Notify(ctx context.Context, title, content string) error
}

// Notification is the wire form published to the notification subject.
type Notification struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NATSNotifier publishes notifications to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *logging.Logger
}

// NewNATSNotifier creates a notifier publishing to subject on conn.
func NewNATSNotifier(conn *nats.Conn, subject string, logger *logging.Logger) (*NATSNotifier, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &NATSNotifier{conn: conn, subject: subject, logger: logger}, nil
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, title, content string) error {
	payload, err := json.Marshal(Notification{Title: title, Content: content})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	n.logger.Debug(ctx, "notification published",
		zap.String("subject", n.subject),
		zap.String("title", title))
	return nil
}

// Nop is a Notifier that discards everything. Used when NATS is disabled.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(ctx context.Context, title, content string) error { return nil }
