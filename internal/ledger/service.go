package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"yatra/internal/audit"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
	"yatra/pkg/platform/sentinel"
	"yatra/pkg/requestcontext"
)

// Service is the Identity Ledger: it mints tamper-evident digital identities
// from KYC data without persisting that data in the clear.
//
// Issuance is serialized by a single-writer mutex so the (kycHash, nonce)
// derivation can never produce two identical tokens, even for byte-identical
// payloads submitted concurrently. Lookups run concurrently with issuance.
type Service struct {
	store       Store
	audit       *audit.Publisher
	metrics     *Metrics
	maxTripDays int

	issueMu sync.Mutex
	nonce   uint64
}

type serviceConfig struct {
	audit       *audit.Publisher
	metrics     *Metrics
	maxTripDays int
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

func WithAudit(p *audit.Publisher) Option { return func(c *serviceConfig) { c.audit = p } }
func WithMetrics(m *Metrics) Option { return func(c *serviceConfig) { c.metrics = m } }

// WithMaxTripDays caps the validity window accepted at issuance.
func WithMaxTripDays(days int) Option { return func(c *serviceConfig) { c.maxTripDays = days } }

// NewService constructs the ledger. The issuance nonce resumes from the last
// persisted chain entry so tokens stay unique across restarts.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	cfg := &serviceConfig{maxTripDays: 365}
	for _, opt := range opts {
		opt(cfg)
	}

	last, ok, err := store.LastEntry(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read ledger chain head: %w", err)
	}
	s := &Service{store: store, audit: cfg.audit, metrics: cfg.metrics, maxTripDays: cfg.maxTripDays}
	if ok {
		s.nonce = last.Seq
	}
	return s, nil
}

// Issue mints a new digital identity.
//
// Errors: CodeInvalidInput for missing fields or a non-positive/oversized
// duration; CodeInternal when persistence fails.
func (s *Service) Issue(ctx context.Context, kyc KYCPayload, itinerary, emergencyContacts []string, durationDays int) (IdentityRecord, error) {
	if err := kyc.Validate(); err != nil {
		return IdentityRecord{}, err
	}
	if len(itinerary) == 0 {
		return IdentityRecord{}, dErrors.New(dErrors.CodeInvalidInput, "itinerary is required")
	}
	for _, stop := range itinerary {
		if stop == "" {
			return IdentityRecord{}, dErrors.New(dErrors.CodeInvalidInput, "itinerary entries cannot be empty")
		}
	}
	if len(emergencyContacts) == 0 {
		return IdentityRecord{}, dErrors.New(dErrors.CodeInvalidInput, "at least one emergency contact is required")
	}
	if durationDays <= 0 {
		return IdentityRecord{}, dErrors.New(dErrors.CodeInvalidInput, "trip duration must be positive")
	}
	if durationDays > s.maxTripDays {
		return IdentityRecord{}, dErrors.Newf(dErrors.CodeInvalidInput, "trip duration exceeds %d days", s.maxTripDays)
	}

	kycHash, err := hashKYC(kyc)
	if err != nil {
		return IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash kyc payload")
	}

	now := requestcontext.Now(ctx)
	record, err := s.mint(ctx, kycHash, itinerary, emergencyContacts, durationDays, now)
	if err != nil {
		return IdentityRecord{}, err
	}

	s.incrementIssued()
	s.emit(ctx, audit.Event{
		Token:  string(record.Token),
		Action: audit.ActionIdentityIssued,
		Detail: fmt.Sprintf("valid until %s", record.ValidUntil.UTC().Format(time.RFC3339)),
	})
	return record, nil
}

// mint performs the serialized part of issuance: nonce advance, token
// derivation, identity save, and chain append.
func (s *Service) mint(ctx context.Context, kycHash string, itinerary, contacts []string, durationDays int, now time.Time) (IdentityRecord, error) {
	s.issueMu.Lock()
	defer s.issueMu.Unlock()

	s.nonce++
	record := IdentityRecord{
		Token:             deriveToken(kycHash, s.nonce),
		KYCHash:           kycHash,
		Itinerary:         append([]string(nil), itinerary...),
		EmergencyContacts: append([]string(nil), contacts...),
		IssuedAt:          now,
		ValidUntil:        now.Add(time.Duration(durationDays) * 24 * time.Hour),
	}

	if err := s.store.SaveIdentity(ctx, record); err != nil {
		return IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist identity")
	}

	prev := genesisHash
	if last, ok, err := s.store.LastEntry(ctx); err != nil {
		return IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read chain head")
	} else if ok {
		prev = last.Hash
	}

	entry := ChainEntry{
		Seq:      s.nonce,
		Token:    record.Token,
		KYCHash:  kycHash,
		IssuedAt: record.IssuedAt,
		PrevHash: prev,
	}
	entry.Hash = entryHash(prev, entry.Token, entry.KYCHash, entry.IssuedAt)
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		return IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append chain entry")
	}
	return record, nil
}

// Lookup returns the issuance record for a token.
// Errors: CodeNotFound for unknown tokens.
func (s *Service) Lookup(ctx context.Context, token id.TouristToken) (IdentityRecord, error) {
	record, err := s.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return IdentityRecord{}, dErrors.New(dErrors.CodeNotFound, "tourist not found")
		}
		return IdentityRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}
	return record, nil
}

// RequireValid looks up a token and enforces the validity window.
// Errors: CodeNotFound for unknown tokens, CodeExpired past validUntil.
func (s *Service) RequireValid(ctx context.Context, token id.TouristToken) (IdentityRecord, error) {
	record, err := s.Lookup(ctx, token)
	if err != nil {
		return IdentityRecord{}, err
	}
	if record.ExpiredAt(requestcontext.Now(ctx)) {
		return IdentityRecord{}, dErrors.New(dErrors.CodeExpired, "digital identity has expired")
	}
	return record, nil
}

// Verify recomputes the whole issuance chain.
// ok=false reports the first tampered sequence number.
func (s *Service) Verify(ctx context.Context) (ok bool, badSeq uint64, err error) {
	entries, err := s.store.Entries(ctx)
	if err != nil {
		return false, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read chain")
	}
	ok, badSeq = VerifyChain(entries)
	return ok, badSeq, nil
}

func (s *Service) incrementIssued() {
	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	s.audit.Emit(ctx, event)
}
