package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"yatra/internal/geofence"
	"yatra/internal/safety"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// recordingDispatcher captures deliveries and can fail selected tokens.
type recordingDispatcher struct {
	mu       sync.Mutex
	sent     []Recipient
	failFor  map[id.TouristToken]bool
	messages []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, recipient Recipient, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[recipient.Token] {
		return errors.New("delivery failed")
	}
	d.sent = append(d.sent, recipient)
	d.messages = append(d.messages, message)
	return nil
}

func (d *recordingDispatcher) delivered() []Recipient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Recipient(nil), d.sent...)
}

type NotifyServiceSuite struct {
	suite.Suite
	records    *safety.InMemoryStore
	fences     *geofence.Index
	dispatcher *recordingDispatcher
	service    *Service
	jaipur     geofence.Point
}

func TestNotifyServiceSuite(t *testing.T) {
	suite.Run(t, new(NotifyServiceSuite))
}

func (s *NotifyServiceSuite) SetupTest() {
	s.records = safety.NewInMemoryStore()
	s.fences = geofence.NewIndex()
	s.dispatcher = &recordingDispatcher{failFor: map[id.TouristToken]bool{}}
	s.jaipur = geofence.Point{Lat: 26.9124, Lng: 75.7873}

	var err error
	s.service, err = NewService(s.records, s.fences, s.dispatcher)
	s.Require().NoError(err)
}

func (s *NotifyServiceSuite) track(token id.TouristToken, loc *geofence.Point, status safety.Status) {
	s.Require().NoError(s.records.Create(context.Background(), safety.Record{
		Token:        token,
		LastLocation: loc,
		SafetyStatus: status,
	}))
}

func (s *NotifyServiceSuite) offsetNorth(meters float64) *geofence.Point {
	p := geofence.Point{Lat: s.jaipur.Lat + meters/111195.0, Lng: s.jaipur.Lng}
	return &p
}

func (s *NotifyServiceSuite) TestRecipientsByCircle() {
	ctx := context.Background()

	s.track("TID-000000000000000000000001", s.offsetNorth(500), safety.StatusNormal)
	s.track("TID-000000000000000000000002", s.offsetNorth(900), safety.StatusAlert)
	s.track("TID-000000000000000000000003", s.offsetNorth(1500), safety.StatusNormal)
	s.track("TID-000000000000000000000004", nil, safety.StatusNormal)

	recipients, err := s.service.Recipients(ctx, Target{
		Circle: &TargetCircle{Center: s.jaipur, RadiusMeters: 1000},
	})
	s.Require().NoError(err)
	s.Require().Len(recipients, 2)

	tokens := map[id.TouristToken]bool{}
	for _, recipient := range recipients {
		tokens[recipient.Token] = true
	}
	s.True(tokens["TID-000000000000000000000001"])
	s.True(tokens["TID-000000000000000000000002"])
	s.False(tokens["TID-000000000000000000000003"], "outside the radius")
	s.False(tokens["TID-000000000000000000000004"], "no known location")
}

func (s *NotifyServiceSuite) TestRecipientsByFence() {
	ctx := context.Background()

	fenceID, err := s.fences.Add(ctx, geofence.GeoFence{
		Name:      "flood zone",
		RiskLevel: geofence.RiskHigh,
		IsActive:  true,
		Geometry:  geofence.Geometry{Circle: &geofence.Circle{Center: s.jaipur, RadiusMeters: 1000}},
	})
	s.Require().NoError(err)

	s.track("TID-000000000000000000000001", s.offsetNorth(500), safety.StatusNormal)
	s.track("TID-000000000000000000000002", s.offsetNorth(2000), safety.StatusNormal)

	s.Run("named fence resolves its occupants", func() {
		recipients, err := s.service.Recipients(ctx, Target{FenceID: fenceID})
		s.Require().NoError(err)
		s.Require().Len(recipients, 1)
		s.Equal(id.TouristToken("TID-000000000000000000000001"), recipients[0].Token)
	})

	s.Run("unknown fence id", func() {
		_, err := s.service.Recipients(ctx, Target{FenceID: id.FenceID(uuid.New())})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *NotifyServiceSuite) TestTargetValidation() {
	ctx := context.Background()
	fenceID := id.FenceID(uuid.New())

	cases := []struct {
		name   string
		target Target
	}{
		{"neither circle nor fence", Target{}},
		{"both circle and fence", Target{
			Circle:  &TargetCircle{Center: s.jaipur, RadiusMeters: 100},
			FenceID: fenceID,
		}},
		{"zero radius", Target{Circle: &TargetCircle{Center: s.jaipur, RadiusMeters: 0}}},
		{"negative radius", Target{Circle: &TargetCircle{Center: s.jaipur, RadiusMeters: -10}}},
		{"center out of range", Target{Circle: &TargetCircle{Center: geofence.Point{Lat: -95, Lng: 0}, RadiusMeters: 100}}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Recipients(ctx, tc.target)
			s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "got %v", err)
		})
	}
}

func (s *NotifyServiceSuite) TestBroadcast() {
	ctx := context.Background()

	s.track("TID-000000000000000000000001", s.offsetNorth(100), safety.StatusNormal)
	s.track("TID-000000000000000000000002", s.offsetNorth(200), safety.StatusDanger)
	target := Target{Circle: &TargetCircle{Center: s.jaipur, RadiusMeters: 1000}}

	s.Run("delivers to every recipient", func() {
		receipt, err := s.service.Broadcast(ctx, BroadcastRequest{Target: target, Message: "evacuate north gate"})
		s.Require().NoError(err)
		s.Equal(2, receipt.Recipients)
		s.False(receipt.ID.IsNil())
		s.Len(s.dispatcher.delivered(), 2)
		s.Equal("evacuate north gate", s.dispatcher.messages[0])
	})

	s.Run("a failed delivery does not abort the fan-out", func() {
		s.dispatcher.failFor["TID-000000000000000000000001"] = true
		before := len(s.dispatcher.delivered())

		receipt, err := s.service.Broadcast(ctx, BroadcastRequest{Target: target, Message: "second notice"})
		s.Require().NoError(err)
		s.Equal(2, receipt.Recipients, "the receipt counts the resolved audience")
		s.Len(s.dispatcher.delivered(), before+1, "only the healthy recipient received it")
	})

	s.Run("message is required", func() {
		_, err := s.service.Broadcast(ctx, BroadcastRequest{Target: target})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}
