package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"yatra/internal/audit"
	"yatra/internal/geofence"
	"yatra/internal/safety"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

// SafetyRecords is the slice of the safety module the targeting engine reads.
type SafetyRecords interface {
	List(ctx context.Context) ([]safety.Record, error)
}

// FenceIndex answers named-fence containment for targeting.
type FenceIndex interface {
	Get(ctx context.Context, fenceID id.FenceID) (geofence.GeoFence, error)
	Contains(ctx context.Context, p geofence.Point, fenceID id.FenceID) (bool, error)
}

// Service resolves broadcast audiences and dispatches announcements.
type Service struct {
	records    SafetyRecords
	fences     FenceIndex
	dispatcher Dispatcher
	audit      *audit.Publisher
	metrics    *Metrics
	tracer     trace.Tracer
}

type serviceConfig struct {
	audit   *audit.Publisher
	metrics *Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithAudit(p *audit.Publisher) Option { return func(c *serviceConfig) { c.audit = p } }
func WithMetrics(m *Metrics) Option { return func(c *serviceConfig) { c.metrics = m } }

func NewService(records SafetyRecords, fences FenceIndex, dispatcher Dispatcher, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("safety records source is required")
	}
	if fences == nil {
		return nil, errors.New("fence index is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		records:    records,
		fences:     fences,
		dispatcher: dispatcher,
		audit:      cfg.audit,
		metrics:    cfg.metrics,
		tracer:     otel.Tracer("yatra/notify"),
	}, nil
}

// Recipients resolves the audience for a target. Tourists whose safety record
// has no location are excluded; being untracked is not the same as being
// inside the area.
// Errors: CodeInvalidInput, CodeNotFound for an unknown fence id.
func (s *Service) Recipients(ctx context.Context, target Target) ([]Recipient, error) {
	ctx, span := s.tracer.Start(ctx, "Recipients")
	defer span.End()

	if err := target.validate(); err != nil {
		return nil, err
	}
	if !target.FenceID.IsNil() {
		// Resolve the fence up front so an unknown id fails before the scan.
		if _, err := s.fences.Get(ctx, target.FenceID); err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.String("target.fence_id", target.FenceID.String()))
	} else {
		span.SetAttributes(attribute.Float64("target.radius_meters", target.Circle.RadiusMeters))
	}

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan safety records")
	}

	recipients := make([]Recipient, 0)
	for _, record := range records {
		if record.LastLocation == nil {
			continue
		}
		match, err := s.matches(ctx, target, *record.LastLocation)
		if err != nil {
			return nil, err
		}
		if !match {
			continue
		}
		recipients = append(recipients, Recipient{
			Token:        record.Token,
			Location:     *record.LastLocation,
			SafetyStatus: record.SafetyStatus,
		})
	}

	span.SetAttributes(attribute.Int("recipient_count", len(recipients)))
	return recipients, nil
}

func (s *Service) matches(ctx context.Context, target Target, p geofence.Point) (bool, error) {
	if target.Circle != nil {
		return geofence.HaversineMeters(target.Circle.Center, p) <= target.Circle.RadiusMeters, nil
	}
	return s.fences.Contains(ctx, p, target.FenceID)
}

// Broadcast resolves the audience and dispatches the message to each
// recipient. Individual delivery failures are reported per recipient but do
// not abort the rest of the fan-out.
// Errors: CodeInvalidInput, CodeNotFound.
func (s *Service) Broadcast(ctx context.Context, req BroadcastRequest) (BroadcastReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "Broadcast")
	defer span.End()

	if req.Message == "" {
		return BroadcastReceipt{}, dErrors.New(dErrors.CodeInvalidInput, "broadcast message is required")
	}

	recipients, err := s.Recipients(ctx, req.Target)
	if err != nil {
		return BroadcastReceipt{}, err
	}

	var failed int
	for _, recipient := range recipients {
		if err := s.dispatcher.Dispatch(ctx, recipient, req.Message); err != nil {
			failed++
			span.SetAttributes(attribute.Bool("delivery_failures", true))
		}
	}

	receipt := BroadcastReceipt{
		ID:         id.BroadcastID(uuid.New()),
		Recipients: len(recipients),
		SentAt:     requestcontext.Now(ctx),
	}
	span.SetAttributes(
		attribute.String("broadcast_id", receipt.ID.String()),
		attribute.Int("recipient_count", receipt.Recipients),
		attribute.Int("failed_deliveries", failed),
	)

	s.incrementBroadcast(len(recipients))
	s.emit(ctx, audit.Event{
		Action: audit.ActionBroadcastSent,
		Detail: fmt.Sprintf("broadcast=%s recipients=%d failed=%d", receipt.ID, receipt.Recipients, failed),
	})
	return receipt, nil
}

func (s *Service) incrementBroadcast(recipients int) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementBroadcastsSent()
	s.metrics.AddRecipientsTargeted(recipients)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Actor == "" {
		event.Actor = requestcontext.OperatorID(ctx)
	}
	s.audit.Emit(ctx, event)
}
