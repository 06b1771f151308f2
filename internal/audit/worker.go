package audit

import (
	"context"
	"log/slog"
)

// Sink forwards audit events to an external system (e.g. Kafka).
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher's sink channel and forwards events. It keeps
// network publishing off the request path; forwarding failures are logged and
// the event copy is dropped (the store already holds the durable record).
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to forward audit event",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
