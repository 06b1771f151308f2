// Package service owns the alert state machine. It is the sole mutator of
// alert status and timeline fields; the safety module opens alerts through it
// and the dashboard transitions them through it.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	alertmetrics "yatra/internal/alert/metrics"
	"yatra/internal/alert/models"
	"yatra/internal/audit"
	"yatra/internal/geofence"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/platform/sentinel"
	"yatra/pkg/requestcontext"
)

// Store is the persistence contract for alerts. Implementations return
// sentinel errors and keep validate-then-mutate atomic per alert.
type Store interface {
	CreateIfNoActive(ctx context.Context, candidate *models.Alert) (*models.Alert, bool, error)
	FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	Execute(ctx context.Context, alertID id.AlertID, validate func(*models.Alert) error, apply func(*models.Alert)) (*models.Alert, error)
	List(ctx context.Context, status *models.Status) ([]*models.Alert, error)
	HasOtherNonTerminal(ctx context.Context, token id.TouristToken, excluding id.AlertID) (bool, error)
}

// StatusClearer resets a tourist's safety status once their last open alert
// closes. Implemented by the safety service; injected after construction to
// break the alert ↔ safety dependency cycle.
type StatusClearer interface {
	ClearToNormal(ctx context.Context, token id.TouristToken) error
}

// Notifier receives every alert transition. Implementations must not block;
// delivery is fire-and-forget from the engine's perspective.
type Notifier interface {
	AlertChanged(ctx context.Context, alert *models.Alert)
}

// Service orchestrates the alert lifecycle.
type Service struct {
	store    Store
	clearer  StatusClearer
	notifier Notifier
	audit    *audit.Publisher
	metrics  *alertmetrics.Metrics
}

type serviceConfig struct {
	notifier Notifier
	audit    *audit.Publisher
	metrics  *alertmetrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithNotifier(n Notifier) Option { return func(c *serviceConfig) { c.notifier = n } }
func WithAudit(p *audit.Publisher) Option { return func(c *serviceConfig) { c.audit = p } }
func WithMetrics(m *alertmetrics.Metrics) Option { return func(c *serviceConfig) { c.metrics = m } }

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("alert store is required")
	}
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		store:    store,
		notifier: cfg.notifier,
		audit:    cfg.audit,
		metrics:  cfg.metrics,
	}, nil
}

// SetStatusClearer wires the safety service in. Must be called before any
// Resolve/MarkFalseAlarm reaches the service.
func (s *Service) SetStatusClearer(c StatusClearer) { s.clearer = c }

// OpenRequest carries everything needed to open one alert.
type OpenRequest struct {
	Token    id.TouristToken
	Type     models.Type
	Priority models.Priority
	Location geofence.Point
	Message  string
	// FenceID marks geofence-breach alerts; zero for everything else.
	FenceID id.FenceID
}

// Open creates an active alert, or returns the existing one when a
// non-terminal alert of the same type is already open for the tourist
// (repeated distress presses and repeated pings inside one fence must not
// produce alert storms).
func (s *Service) Open(ctx context.Context, req OpenRequest) (*models.Alert, error) {
	now := requestcontext.Now(ctx)
	candidate, err := models.New(id.AlertID(uuid.New()), req.Token, req.Type, req.Priority, req.Location, req.Message, now)
	if err != nil {
		return nil, err
	}
	candidate.FenceID = req.FenceID

	alert, created, err := s.store.CreateIfNoActive(ctx, candidate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open alert")
	}
	if !created {
		return alert, nil
	}

	s.incrementOpened(string(alert.Type))
	s.emit(ctx, audit.Event{
		Token:  string(alert.TouristToken),
		Action: audit.ActionAlertOpened,
		Detail: fmt.Sprintf("type=%s priority=%s alert=%s", alert.Type, alert.Priority, alert.ID),
	})
	s.notify(ctx, alert)
	return alert, nil
}

// Acknowledge transitions an alert from active to acknowledged.
// Errors: CodeNotFound, CodeInvalidTransition.
func (s *Service) Acknowledge(ctx context.Context, alertID id.AlertID, by string) (*models.Alert, error) {
	now := requestcontext.Now(ctx)
	alert, err := s.store.Execute(ctx, alertID,
		func(a *models.Alert) error { return a.CanAcknowledge() },
		func(a *models.Alert) { a.ApplyAcknowledge(by, now) },
	)
	if err != nil {
		return nil, wrapAlertErr(err)
	}

	s.incrementTransition("acknowledge")
	s.emit(ctx, audit.Event{
		Token:  string(alert.TouristToken),
		Action: audit.ActionAlertAcknowledged,
		Actor:  by,
		Detail: fmt.Sprintf("alert=%s", alert.ID),
	})
	s.notify(ctx, alert)
	return alert, nil
}

// Resolve closes an alert from active or acknowledged. When no other
// non-terminal alert remains for the tourist, their safety status returns to
// normal.
// Errors: CodeNotFound, CodeInvalidTransition.
func (s *Service) Resolve(ctx context.Context, alertID id.AlertID, by, notes string) (*models.Alert, error) {
	now := requestcontext.Now(ctx)
	alert, err := s.store.Execute(ctx, alertID,
		func(a *models.Alert) error { return a.CanResolve() },
		func(a *models.Alert) { a.ApplyResolve(by, notes, now) },
	)
	if err != nil {
		return nil, wrapAlertErr(err)
	}

	s.incrementTransition("resolve")
	s.emit(ctx, audit.Event{
		Token:  string(alert.TouristToken),
		Action: audit.ActionAlertResolved,
		Actor:  by,
		Detail: fmt.Sprintf("alert=%s", alert.ID),
	})
	s.notify(ctx, alert)

	if err := s.clearIfLast(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// MarkFalseAlarm closes an alert as a false alarm; same legality and safety
// status handling as Resolve.
// Errors: CodeNotFound, CodeInvalidTransition.
func (s *Service) MarkFalseAlarm(ctx context.Context, alertID id.AlertID, by, notes string) (*models.Alert, error) {
	now := requestcontext.Now(ctx)
	alert, err := s.store.Execute(ctx, alertID,
		func(a *models.Alert) error { return a.CanMarkFalseAlarm() },
		func(a *models.Alert) { a.ApplyFalseAlarm(by, notes, now) },
	)
	if err != nil {
		return nil, wrapAlertErr(err)
	}

	s.incrementTransition("false_alarm")
	s.emit(ctx, audit.Event{
		Token:  string(alert.TouristToken),
		Action: audit.ActionAlertFalseAlarm,
		Actor:  by,
		Detail: fmt.Sprintf("alert=%s", alert.ID),
	})
	s.notify(ctx, alert)

	if err := s.clearIfLast(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Get returns one alert.
// Errors: CodeNotFound.
func (s *Service) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	alert, err := s.store.FindByID(ctx, alertID)
	if err != nil {
		return nil, wrapAlertErr(err)
	}
	return alert, nil
}

// List returns alerts for the dashboard, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.Status) ([]*models.Alert, error) {
	alerts, err := s.store.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}

// clearIfLast returns the tourist to normal when the closed alert was their
// last non-terminal one.
func (s *Service) clearIfLast(ctx context.Context, alert *models.Alert) error {
	remaining, err := s.store.HasOtherNonTerminal(ctx, alert.TouristToken, alert.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check sibling alerts")
	}
	if remaining || s.clearer == nil {
		return nil
	}
	if err := s.clearer.ClearToNormal(ctx, alert.TouristToken); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear safety status")
	}
	return nil
}

func wrapAlertErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "alert not found")
	case dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "alert operation failed")
	}
}

func (s *Service) incrementOpened(alertType string) {
	if s.metrics != nil {
		s.metrics.IncrementOpened(alertType)
	}
}

func (s *Service) incrementTransition(action string) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(action)
	}
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

func (s *Service) notify(ctx context.Context, alert *models.Alert) {
	if s.notifier != nil {
		s.notifier.AlertChanged(ctx, alert)
	}
}
