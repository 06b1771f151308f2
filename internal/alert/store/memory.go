// Package store persists alert records.
//
// The Execute callback pattern mirrors the rest of the engine: the store holds
// its lock across both the validation and the mutation of one alert, so state
// machine checks can never race a concurrent transition.
package store

import (
	"context"
	"sort"
	"sync"

	"yatra/internal/alert/models"
	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
)

// InMemory is the default alert store.
type InMemory struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*models.Alert
}

func NewInMemory() *InMemory {
	return &InMemory{alerts: make(map[id.AlertID]*models.Alert)}
}

// CreateIfNoActive inserts the candidate unless a non-terminal alert of the
// same type already exists for the tourist. The check and the insert happen
// under one lock, so concurrent distress signals cannot produce two active
// alerts of one type.
//
// Returns the surviving alert and whether the candidate was inserted.
func (s *InMemory) CreateIfNoActive(_ context.Context, candidate *models.Alert) (*models.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.TouristToken == candidate.TouristToken &&
			existing.Type == candidate.Type &&
			!existing.IsTerminal() {
			return copyAlert(existing), false, nil
		}
	}

	stored := copyAlert(candidate)
	s.alerts[stored.ID] = stored
	return copyAlert(stored), true, nil
}

// FindByID returns a copy of one alert.
func (s *InMemory) FindByID(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAlert(alert), nil
}

// Execute runs validate-then-mutate atomically for one alert. The mutation is
// skipped when validation fails; either way the lock covers the whole step.
func (s *InMemory) Execute(_ context.Context, alertID id.AlertID, validate func(*models.Alert) error, apply func(*models.Alert)) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(alert); err != nil {
		return nil, err
	}
	apply(alert)
	return copyAlert(alert), nil
}

// List returns alerts, optionally filtered by status, most recent first.
func (s *InMemory) List(_ context.Context, status *models.Status) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Alert
	for _, alert := range s.alerts {
		if status != nil && alert.Status != *status {
			continue
		}
		out = append(out, copyAlert(alert))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// HasOtherNonTerminal reports whether the tourist has any non-terminal alert
// besides the given one.
func (s *InMemory) HasOtherNonTerminal(_ context.Context, token id.TouristToken, excluding id.AlertID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, alert := range s.alerts {
		if alert.TouristToken == token && alert.ID != excluding && !alert.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func copyAlert(a *models.Alert) *models.Alert {
	clone := *a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		clone.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		clone.ResolvedAt = &t
	}
	return &clone
}
