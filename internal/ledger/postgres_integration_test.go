//go:build integration

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
	"yatra/pkg/testutil/containers"
)

const ledgerDDL = `
CREATE TABLE identities (
    token              TEXT PRIMARY KEY,
    kyc_hash           TEXT NOT NULL,
    itinerary          JSONB NOT NULL,
    emergency_contacts JSONB NOT NULL,
    issued_at          TIMESTAMPTZ NOT NULL,
    valid_until        TIMESTAMPTZ NOT NULL
);
CREATE TABLE ledger_chain (
    seq       BIGINT PRIMARY KEY,
    token     TEXT NOT NULL REFERENCES identities (token),
    kyc_hash  TEXT NOT NULL,
    issued_at TIMESTAMPTZ NOT NULL,
    prev_hash TEXT NOT NULL,
    hash      TEXT NOT NULL
);
`

type LedgerPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestLedgerPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.pg.ApplySchema(context.Background(), ledgerDDL))
	s.store = NewPostgresStore(s.pg.DB)
}

func (s *LedgerPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "ledger_chain", "identities"))
}

func (s *LedgerPostgresSuite) TestIdentityRoundtrip() {
	ctx := context.Background()
	record := IdentityRecord{
		Token:             "TID-0123456789abcdef01234567",
		KYCHash:           "abc123",
		Itinerary:         []string{"Jaipur", "Udaipur"},
		EmergencyContacts: []string{"+91-9999999999"},
		IssuedAt:          time.Now().UTC().Truncate(time.Microsecond),
		ValidUntil:        time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Microsecond),
	}

	s.Require().NoError(s.store.SaveIdentity(ctx, record))

	found, err := s.store.FindByToken(ctx, record.Token)
	s.Require().NoError(err)
	s.Equal(record.KYCHash, found.KYCHash)
	s.Equal(record.Itinerary, found.Itinerary)
	s.Equal(record.EmergencyContacts, found.EmergencyContacts)
	s.WithinDuration(record.ValidUntil, found.ValidUntil, time.Millisecond)

	s.Run("duplicate token conflicts", func() {
		err := s.store.SaveIdentity(ctx, record)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown token", func() {
		_, err := s.store.FindByToken(ctx, id.TouristToken("TID-000000000000000000000000"))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *LedgerPostgresSuite) TestChainSurvivesRestart() {
	ctx := context.Background()

	service, err := NewService(s.store)
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		_, err := service.Issue(ctx, KYCPayload{
			FullName:       "Asha Verma",
			DocumentType:   "passport",
			DocumentNumber: "P1234567",
			Nationality:    "IN",
		}, []string{"Jaipur"}, []string{"+91-9999999999"}, 7)
		s.Require().NoError(err)
	}

	ok, badSeq, err := service.Verify(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Zero(badSeq)

	// A fresh service over the same database resumes the chain.
	restarted, err := NewService(s.store)
	s.Require().NoError(err)
	_, err = restarted.Issue(ctx, KYCPayload{
		FullName:       "Ravi Kumar",
		DocumentType:   "passport",
		DocumentNumber: "P7654321",
		Nationality:    "IN",
	}, []string{"Jodhpur"}, []string{"+91-8888888888"}, 5)
	s.Require().NoError(err)

	entries, err := s.store.Entries(ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	s.Equal(uint64(4), entries[3].Seq)

	ok, _, err = restarted.Verify(ctx)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *LedgerPostgresSuite) TestTamperDetection() {
	ctx := context.Background()

	service, err := NewService(s.store)
	s.Require().NoError(err)
	for i := 0; i < 2; i++ {
		_, err := service.Issue(ctx, KYCPayload{
			FullName:       "Asha Verma",
			DocumentType:   "passport",
			DocumentNumber: "P1234567",
			Nationality:    "IN",
		}, []string{"Jaipur"}, []string{"+91-9999999999"}, 7)
		s.Require().NoError(err)
	}

	// Tamper with a persisted hash directly.
	_, err = s.pg.DB.ExecContext(ctx, `UPDATE ledger_chain SET kyc_hash = 'deadbeef' WHERE seq = 1`)
	s.Require().NoError(err)

	ok, badSeq, err := service.Verify(ctx)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(uint64(1), badSeq)
}
