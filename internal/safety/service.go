package safety

import (
	"context"
	"errors"
	"fmt"

	alertmodels "yatra/internal/alert/models"
	alertsvc "yatra/internal/alert/service"
	"yatra/internal/audit"
	"yatra/internal/geofence"
	"yatra/internal/ledger"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/platform/sentinel"
	"yatra/pkg/requestcontext"
)

// Identities is the slice of the identity ledger the safety module needs.
type Identities interface {
	RequireValid(ctx context.Context, token id.TouristToken) (ledger.IdentityRecord, error)
}

// Fences answers containment queries against the zone index.
type Fences interface {
	FencesContaining(ctx context.Context, p geofence.Point) []geofence.GeoFence
}

// AlertOpener opens alerts on the lifecycle manager. Open is idempotent per
// tourist and type, which is what keeps repeated pings inside one fence from
// producing alert storms.
type AlertOpener interface {
	Open(ctx context.Context, req alertsvc.OpenRequest) (*alertmodels.Alert, error)
}

// Service maintains tourist safety records and reacts to location reports and
// distress signals.
type Service struct {
	store      Store
	identities Identities
	fences     Fences
	alerts     AlertOpener
	audit      *audit.Publisher
	metrics    *Metrics
}

type serviceConfig struct {
	audit   *audit.Publisher
	metrics *Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithAudit(p *audit.Publisher) Option { return func(c *serviceConfig) { c.audit = p } }
func WithMetrics(m *Metrics) Option { return func(c *serviceConfig) { c.metrics = m } }

func NewService(store Store, identities Identities, fences Fences, alerts AlertOpener, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("safety store is required")
	}
	if identities == nil {
		return nil, errors.New("identity ledger is required")
	}
	if fences == nil {
		return nil, errors.New("fence index is required")
	}
	if alerts == nil {
		return nil, errors.New("alert opener is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		store:      store,
		identities: identities,
		fences:     fences,
		alerts:     alerts,
		audit:      cfg.audit,
		metrics:    cfg.metrics,
	}, nil
}

// Track creates the safety record for a freshly issued identity. The record
// starts in normal status with no known location.
// Errors: CodeConflict when the token is already tracked.
func (s *Service) Track(ctx context.Context, token id.TouristToken) (Record, error) {
	record := Record{
		Token:        token,
		SafetyStatus: StatusNormal,
		LastUpdated:  requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Record{}, dErrors.New(dErrors.CodeConflict, "tourist already tracked")
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create safety record")
	}
	return record, nil
}

// RecordLocation ingests one location report: it updates the tourist's last
// known position, then evaluates active fences at that position. Entering a
// high or critical zone moves a normal tourist to alert and opens one
// safety_concern alert for the highest-risk fence (smallest fence id on ties).
// A tourist in danger stays in danger.
// Errors: CodeInvalidInput, CodeNotFound, CodeExpired.
func (s *Service) RecordLocation(ctx context.Context, token id.TouristToken, p geofence.Point) (Record, error) {
	if !p.Valid() {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "coordinates out of range")
	}
	if _, err := s.identities.RequireValid(ctx, token); err != nil {
		return Record{}, err
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, token, func(r *Record) error {
		loc := p
		r.LastLocation = &loc
		if now.After(r.LastUpdated) {
			r.LastUpdated = now
		}
		return nil
	})
	if err != nil {
		return Record{}, wrapRecordErr(err)
	}
	s.incrementLocationUpdates()

	breach := highestRisk(s.fences.FencesContaining(ctx, p))
	if breach == nil {
		return record, nil
	}

	record, err = s.store.Execute(ctx, token, func(r *Record) error {
		if r.SafetyStatus == StatusNormal {
			r.SafetyStatus = StatusAlert
		}
		return nil
	})
	if err != nil {
		return Record{}, wrapRecordErr(err)
	}
	s.incrementFenceBreaches(string(breach.RiskLevel))

	if _, err := s.alerts.Open(ctx, alertsvc.OpenRequest{
		Token:    token,
		Type:     alertmodels.TypeSafetyConcern,
		Priority: priorityFor(breach.RiskLevel),
		Location: p,
		Message:  fmt.Sprintf("entered %s zone %q", breach.RiskLevel, breach.Name),
		FenceID:  breach.ID,
	}); err != nil {
		return Record{}, err
	}
	return record, nil
}

// RecordDistress handles a panic-button press: the tourist goes to danger
// regardless of current status and one critical distress alert opens
// (idempotently, so a mashed button yields a single alert). An optional
// location refines the last known position.
// Errors: CodeInvalidInput, CodeNotFound.
func (s *Service) RecordDistress(ctx context.Context, token id.TouristToken, p *geofence.Point) (Record, error) {
	if p != nil && !p.Valid() {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "coordinates out of range")
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, token, func(r *Record) error {
		if p != nil {
			loc := *p
			r.LastLocation = &loc
		}
		r.SafetyStatus = StatusDanger
		if now.After(r.LastUpdated) {
			r.LastUpdated = now
		}
		return nil
	})
	if err != nil {
		return Record{}, wrapRecordErr(err)
	}
	s.incrementDistressSignals()

	var loc geofence.Point
	if record.LastLocation != nil {
		loc = *record.LastLocation
	}
	if _, err := s.alerts.Open(ctx, alertsvc.OpenRequest{
		Token:    token,
		Type:     alertmodels.TypeDistress,
		Priority: alertmodels.PriorityCritical,
		Location: loc,
		Message:  "distress signal received",
	}); err != nil {
		return Record{}, err
	}

	s.emit(ctx, audit.Event{
		Token:  string(token),
		Action: audit.ActionDistressReceived,
		Detail: fmt.Sprintf("status=%s", record.SafetyStatus),
	})
	return record, nil
}

// ClearToNormal returns a tourist to normal status. Called by the alert
// lifecycle when the tourist's last open alert closes.
// Errors: CodeNotFound.
func (s *Service) ClearToNormal(ctx context.Context, token id.TouristToken) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, token, func(r *Record) error {
		r.SafetyStatus = StatusNormal
		if now.After(r.LastUpdated) {
			r.LastUpdated = now
		}
		return nil
	})
	if err != nil {
		return wrapRecordErr(err)
	}
	return nil
}

// Get returns one tourist's safety record.
// Errors: CodeNotFound.
func (s *Service) Get(ctx context.Context, token id.TouristToken) (Record, error) {
	record, err := s.store.Find(ctx, token)
	if err != nil {
		return Record{}, wrapRecordErr(err)
	}
	return record, nil
}

// List returns every safety record for the dashboard, ordered by token.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list safety records")
	}
	return records, nil
}

// highestRisk picks the fence that drives the safety reaction: highest risk
// rank wins, and the input's id ordering breaks ties deterministically. Only
// high and critical zones trigger a reaction.
func highestRisk(fences []geofence.GeoFence) *geofence.GeoFence {
	var top *geofence.GeoFence
	for i := range fences {
		if fences[i].RiskLevel.Rank() < geofence.RiskHigh.Rank() {
			continue
		}
		if top == nil || fences[i].RiskLevel.Rank() > top.RiskLevel.Rank() {
			top = &fences[i]
		}
	}
	return top
}

func priorityFor(risk geofence.RiskLevel) alertmodels.Priority {
	if risk == geofence.RiskCritical {
		return alertmodels.PriorityCritical
	}
	return alertmodels.PriorityHigh
}

func wrapRecordErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "tourist not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "safety record operation failed")
	}
}

func (s *Service) incrementLocationUpdates() {
	if s.metrics != nil {
		s.metrics.IncrementLocationUpdates()
	}
}

func (s *Service) incrementFenceBreaches(riskLevel string) {
	if s.metrics != nil {
		s.metrics.IncrementFenceBreaches(riskLevel)
	}
}

func (s *Service) incrementDistressSignals() {
	if s.metrics != nil {
		s.metrics.IncrementDistressSignals()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.audit.Emit(ctx, event)
}
