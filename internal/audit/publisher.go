package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is the append-only persistence behind the audit trail. Entries are
// never mutated or removed.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByToken(ctx context.Context, token string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher captures structured audit events. Persistence is synchronous (the
// default store is in-memory); external sinks receive events through a
// buffered channel drained by the Worker, so domain code never blocks on the
// network.
type Publisher struct {
	store  Store
	sink   chan<- Event
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// WithSink attaches the channel drained by a Worker. Returns the publisher for
// chaining during wiring.
func (p *Publisher) WithSink(sink chan<- Event) *Publisher {
	p.sink = sink
	return p
}

// Emit records one event. Failures are logged, never propagated: the audit
// trail must not veto the domain action it describes.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", event.Action,
			"error", err,
		)
	}
	if p.sink != nil {
		select {
		case p.sink <- event:
		default:
			p.logger.WarnContext(ctx, "audit sink full, dropping event copy",
				"action", event.Action,
			)
		}
	}
}

// ListByToken returns the trail for one tourist.
func (p *Publisher) ListByToken(ctx context.Context, token string) ([]Event, error) {
	return p.store.ListByToken(ctx, token)
}

// ListRecent returns the most recent events for the dashboard.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.ListRecent(ctx, limit)
}
