package lark

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/application/port"
)

// Notifier delivers request notifications as Lark post messages
type Notifier struct {
	messenger *Messenger
}

// NewNotifier creates a Lark backed notifier
func NewNotifier(messenger *Messenger) *Notifier {
	return &Notifier{messenger: messenger}
}

// Notify implements port.Notifier
func (n *Notifier) Notify(ctx context.Context, notification port.Notification) error {
	return n.messenger.SendPost(ctx, notification.RecipientID, notification.Title, notification.Body)
}

// LogNotifier only logs notifications; used when Lark is disabled
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that writes to the log
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements port.Notifier
func (n *LogNotifier) Notify(ctx context.Context, notification port.Notification) error {
	n.logger.Info("Notification (lark disabled)",
		zap.String("recipient_id", notification.RecipientID),
		zap.String("title", notification.Title),
		zap.String("body", notification.Body))
	return nil
}

var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = (*LogNotifier)(nil)
	_ MessageSender = (*Client)(nil)
)
