package notify

import (
	"context"
	"log/slog"
)

// Dispatcher delivers one message to one recipient. Implementations own the
// actual channel (SMS gateway, push provider); the engine only decides who.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient Recipient, message string) error
}

// LogDispatcher writes deliveries to the structured log. It is the default
// when no gateway is configured, which keeps broadcasts observable in
// development and in tests.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, recipient Recipient, message string) error {
	d.logger.InfoContext(ctx, "broadcast delivery",
		"token", string(recipient.Token),
		"safety_status", string(recipient.SafetyStatus),
		"message", message,
	)
	return nil
}
