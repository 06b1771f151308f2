package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"yatra/internal/alert/models"
	"yatra/internal/alert/store"
	"yatra/internal/geofence"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

const testToken = id.TouristToken("TID-0123456789abcdef01234567")

// recordingClearer captures ClearToNormal calls from the lifecycle.
type recordingClearer struct {
	mu     sync.Mutex
	tokens []id.TouristToken
}

func (c *recordingClearer) ClearToNormal(_ context.Context, token id.TouristToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
	return nil
}

func (c *recordingClearer) calls() []id.TouristToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]id.TouristToken(nil), c.tokens...)
}

// recordingNotifier captures change notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (n *recordingNotifier) AlertChanged(_ context.Context, alert *models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type AlertServiceSuite struct {
	suite.Suite
	clearer  *recordingClearer
	notifier *recordingNotifier
	service  *Service
}

func TestAlertServiceSuite(t *testing.T) {
	suite.Run(t, new(AlertServiceSuite))
}

func (s *AlertServiceSuite) SetupTest() {
	s.clearer = &recordingClearer{}
	s.notifier = &recordingNotifier{}

	var err error
	s.service, err = New(store.NewInMemory(), WithNotifier(s.notifier))
	s.Require().NoError(err)
	s.service.SetStatusClearer(s.clearer)
}

func (s *AlertServiceSuite) open(alertType models.Type) *models.Alert {
	alert, err := s.service.Open(context.Background(), OpenRequest{
		Token:    testToken,
		Type:     alertType,
		Priority: models.PriorityCritical,
		Location: geofence.Point{Lat: 26.9, Lng: 75.8},
	})
	s.Require().NoError(err)
	return alert
}

func (s *AlertServiceSuite) TestOpen() {
	ctx := context.Background()

	s.Run("creates an active alert", func() {
		alert := s.open(models.TypeDistress)
		s.Equal(models.StatusActive, alert.Status)
		s.False(alert.ID.IsNil())
		s.Equal(1, s.notifier.count())
	})

	s.Run("repeat open returns the existing alert", func() {
		first := s.open(models.TypeDistress)
		second := s.open(models.TypeDistress)
		s.Equal(first.ID, second.ID)
		s.Equal(1, s.notifier.count(), "binding to an existing alert must not re-notify")
	})

	s.Run("rejects unsupported type", func() {
		_, err := s.service.Open(ctx, OpenRequest{Token: testToken, Type: "earthquake", Priority: models.PriorityHigh})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects missing token", func() {
		_, err := s.service.Open(ctx, OpenRequest{Type: models.TypeDistress, Priority: models.PriorityHigh})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *AlertServiceSuite) TestConcurrentOpen() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	ids := make(chan id.AlertID, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alert, err := s.service.Open(ctx, OpenRequest{
				Token:    testToken,
				Type:     models.TypeDistress,
				Priority: models.PriorityCritical,
			})
			if err == nil {
				ids <- alert.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[id.AlertID]bool{}
	for alertID := range ids {
		unique[alertID] = true
	}
	s.Len(unique, 1, "a mashed panic button must yield one alert")
}

func (s *AlertServiceSuite) TestLifecycle() {
	ctx := context.Background()

	s.Run("full path active to resolved", func() {
		alert := s.open(models.TypeDistress)

		acked, err := s.service.Acknowledge(ctx, alert.ID, "op-1")
		s.Require().NoError(err)
		s.Equal(models.StatusAcknowledged, acked.Status)
		s.Equal("op-1", acked.AcknowledgedBy)
		s.NotNil(acked.AcknowledgedAt)

		resolved, err := s.service.Resolve(ctx, alert.ID, "op-2", "found safe")
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, resolved.Status)
		s.Equal("op-2", resolved.ResolvedBy)
		s.Equal("found safe", resolved.Notes)
	})

	s.Run("resolve straight from active", func() {
		alert := s.open(models.TypeMedical)
		resolved, err := s.service.Resolve(ctx, alert.ID, "op-1", "")
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, resolved.Status)
		s.Nil(resolved.AcknowledgedAt)
	})

	s.Run("false alarm from acknowledged", func() {
		alert := s.open(models.TypeSecurity)
		_, err := s.service.Acknowledge(ctx, alert.ID, "op-1")
		s.Require().NoError(err)

		closed, err := s.service.MarkFalseAlarm(ctx, alert.ID, "op-1", "drill")
		s.Require().NoError(err)
		s.Equal(models.StatusFalseAlarm, closed.Status)
	})
}

func (s *AlertServiceSuite) TestIllegalTransitions() {
	ctx := context.Background()
	alert := s.open(models.TypeDistress)

	_, err := s.service.Resolve(ctx, alert.ID, "op-1", "")
	s.Require().NoError(err)

	s.Run("terminal alerts are frozen", func() {
		_, err := s.service.Acknowledge(ctx, alert.ID, "op-2")
		s.True(dErrors.Is(err, dErrors.CodeInvalidTransition))

		_, err = s.service.Resolve(ctx, alert.ID, "op-2", "")
		s.True(dErrors.Is(err, dErrors.CodeInvalidTransition))

		_, err = s.service.MarkFalseAlarm(ctx, alert.ID, "op-2", "")
		s.True(dErrors.Is(err, dErrors.CodeInvalidTransition))
	})

	s.Run("acknowledge twice", func() {
		other := s.open(models.TypeMedical)
		_, err := s.service.Acknowledge(ctx, other.ID, "op-1")
		s.Require().NoError(err)
		_, err = s.service.Acknowledge(ctx, other.ID, "op-2")
		s.True(dErrors.Is(err, dErrors.CodeInvalidTransition))
	})

	s.Run("unknown alert", func() {
		_, err := s.service.Get(ctx, id.AlertID{})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *AlertServiceSuite) TestClearOnLastResolution() {
	ctx := context.Background()

	distress := s.open(models.TypeDistress)
	concern := s.open(models.TypeSafetyConcern)

	_, err := s.service.Resolve(ctx, distress.ID, "op-1", "")
	s.Require().NoError(err)
	s.Empty(s.clearer.calls(), "a sibling alert is still open")

	_, err = s.service.MarkFalseAlarm(ctx, concern.ID, "op-1", "")
	s.Require().NoError(err)
	s.Equal([]id.TouristToken{testToken}, s.clearer.calls(), "last closure returns the tourist to normal")
}

func (s *AlertServiceSuite) TestList() {
	ctx := context.Background()

	s.open(models.TypeDistress)
	medical := s.open(models.TypeMedical)
	_, err := s.service.Resolve(ctx, medical.ID, "op-1", "")
	s.Require().NoError(err)

	all, err := s.service.List(ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	active := models.StatusActive
	open, err := s.service.List(ctx, &active)
	s.Require().NoError(err)
	s.Len(open, 1)
	s.Equal(models.TypeDistress, open[0].Type)
}
