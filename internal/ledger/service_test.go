package ledger

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/requestcontext"
)

var tokenFormat = regexp.MustCompile(`^TID-[0-9a-f]{24}$`)

type LedgerServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	var err error
	s.service, err = NewService(s.store)
	s.Require().NoError(err)
}

func validKYC() KYCPayload {
	return KYCPayload{
		FullName:       "Asha Verma",
		DocumentType:   "passport",
		DocumentNumber: "P1234567",
		Nationality:    "IN",
	}
}

func (s *LedgerServiceSuite) issue(ctx context.Context) IdentityRecord {
	record, err := s.service.Issue(ctx, validKYC(), []string{"Jaipur"}, []string{"+91-9999999999"}, 7)
	s.Require().NoError(err)
	return record
}

func (s *LedgerServiceSuite) TestIssue() {
	ctx := context.Background()

	s.Run("mints a well-formed token", func() {
		record := s.issue(ctx)
		s.Regexp(tokenFormat, string(record.Token))
		s.NotEmpty(record.KYCHash)
		s.True(record.ValidUntil.After(record.IssuedAt))
	})

	s.Run("identical payloads yield distinct tokens", func() {
		first := s.issue(ctx)
		second := s.issue(ctx)
		s.NotEqual(first.Token, second.Token)
		s.Equal(first.KYCHash, second.KYCHash, "same payload must hash identically")
	})

	s.Run("validity window follows the requested duration", func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		record, err := s.service.Issue(requestcontext.WithTime(ctx, now), validKYC(), []string{"Udaipur"}, []string{"+91-8888888888"}, 7)
		s.Require().NoError(err)
		s.Equal(now, record.IssuedAt)
		s.Equal(now.Add(7*24*time.Hour), record.ValidUntil)
	})
}

func (s *LedgerServiceSuite) TestIssueValidation() {
	ctx := context.Background()

	cases := []struct {
		name      string
		kyc       KYCPayload
		itinerary []string
		contacts  []string
		days      int
	}{
		{"missing full name", KYCPayload{DocumentType: "passport", DocumentNumber: "P1", Nationality: "IN"}, []string{"Jaipur"}, []string{"+91-1"}, 7},
		{"missing document number", KYCPayload{FullName: "A", DocumentType: "passport", Nationality: "IN"}, []string{"Jaipur"}, []string{"+91-1"}, 7},
		{"empty itinerary", validKYC(), nil, []string{"+91-1"}, 7},
		{"blank itinerary stop", validKYC(), []string{""}, []string{"+91-1"}, 7},
		{"no emergency contacts", validKYC(), []string{"Jaipur"}, nil, 7},
		{"zero duration", validKYC(), []string{"Jaipur"}, []string{"+91-1"}, 0},
		{"negative duration", validKYC(), []string{"Jaipur"}, []string{"+91-1"}, -3},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Issue(ctx, tc.kyc, tc.itinerary, tc.contacts, tc.days)
			s.True(dErrors.Is(err, dErrors.CodeInvalidInput), "expected invalid_input, got %v", err)
		})
	}

	s.Run("duration above the cap is rejected", func() {
		svc, err := NewService(NewInMemoryStore(), WithMaxTripDays(30))
		s.Require().NoError(err)
		_, err = svc.Issue(ctx, validKYC(), []string{"Jaipur"}, []string{"+91-1"}, 31)
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func (s *LedgerServiceSuite) TestConcurrentIssuance() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	tokens := make(chan id.TouristToken, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := s.service.Issue(ctx, validKYC(), []string{"Jaipur"}, []string{"+91-1"}, 7)
			if err == nil {
				tokens <- record.Token
			}
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[id.TouristToken]bool)
	for token := range tokens {
		s.False(seen[token], "token %s minted twice", token)
		seen[token] = true
	}
	s.Len(seen, goroutines)
}

func (s *LedgerServiceSuite) TestLookup() {
	ctx := context.Background()

	s.Run("returns the issued record", func() {
		issued := s.issue(ctx)
		found, err := s.service.Lookup(ctx, issued.Token)
		s.NoError(err)
		s.Equal(issued.Token, found.Token)
		s.Equal(issued.KYCHash, found.KYCHash)
	})

	s.Run("unknown token is not found", func() {
		_, err := s.service.Lookup(ctx, id.TouristToken("TID-000000000000000000000000"))
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerServiceSuite) TestRequireValid() {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), issuedAt)
	record := s.issue(ctx)

	s.Run("inside the window", func() {
		later := requestcontext.WithTime(context.Background(), issuedAt.Add(6*24*time.Hour))
		_, err := s.service.RequireValid(later, record.Token)
		s.NoError(err)
	})

	s.Run("past validUntil", func() {
		later := requestcontext.WithTime(context.Background(), issuedAt.Add(8*24*time.Hour))
		_, err := s.service.RequireValid(later, record.Token)
		s.True(dErrors.Is(err, dErrors.CodeExpired))
	})
}

func (s *LedgerServiceSuite) TestVerifyChain() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.issue(ctx)
	}

	s.Run("untampered chain verifies", func() {
		ok, badSeq, err := s.service.Verify(ctx)
		s.Require().NoError(err)
		s.True(ok)
		s.Zero(badSeq)
	})

	s.Run("altered entry is pinpointed", func() {
		entries, err := s.store.Entries(ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, 3)

		entries[1].KYCHash = "deadbeef"
		ok, badSeq := VerifyChain(entries)
		s.False(ok)
		s.Equal(entries[1].Seq, badSeq)
	})

	s.Run("broken link is pinpointed", func() {
		entries, err := s.store.Entries(ctx)
		s.Require().NoError(err)

		entries[2].PrevHash = entries[0].Hash
		ok, badSeq := VerifyChain(entries)
		s.False(ok)
		s.Equal(entries[2].Seq, badSeq)
	})
}

func (s *LedgerServiceSuite) TestNonceResumesAcrossRestart() {
	ctx := context.Background()
	first := s.issue(ctx)

	restarted, err := NewService(s.store)
	s.Require().NoError(err)

	second, err := restarted.Issue(ctx, validKYC(), []string{"Jaipur"}, []string{"+91-1"}, 7)
	s.Require().NoError(err)
	s.NotEqual(first.Token, second.Token)

	entries, err := s.store.Entries(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(2), entries[len(entries)-1].Seq)
	ok, _ := VerifyChain(entries)
	s.True(ok)
}
