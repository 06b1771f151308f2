package ledger

import (
	"context"

	id "yatra/pkg/domain"
)

// Store persists identity records and the hash-chained issuance log.
// Implementations return sentinel errors; the service translates them into
// domain errors.
type Store interface {
	SaveIdentity(ctx context.Context, record IdentityRecord) error
	FindByToken(ctx context.Context, token id.TouristToken) (IdentityRecord, error)
	AppendEntry(ctx context.Context, entry ChainEntry) error
	// LastEntry returns the most recent chain entry, or ok=false on an empty chain.
	LastEntry(ctx context.Context) (ChainEntry, bool, error)
	Entries(ctx context.Context) ([]ChainEntry, error)
}
