package ledger

import (
	"context"
	"sync"

	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
)

// InMemoryStore keeps the default deployment dependency-free. Records are
// copied on the way out so callers can never mutate the ledger's view.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[id.TouristToken]IdentityRecord
	chain      []ChainEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[id.TouristToken]IdentityRecord)}
}

func (s *InMemoryStore) SaveIdentity(_ context.Context, record IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.identities[record.Token]; exists {
		return sentinel.ErrConflict
	}
	s.identities[record.Token] = record
	return nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, token id.TouristToken) (IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.identities[token]; ok {
		return record, nil
	}
	return IdentityRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) AppendEntry(_ context.Context, entry ChainEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain = append(s.chain, entry)
	return nil
}

func (s *InMemoryStore) LastEntry(_ context.Context) (ChainEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chain) == 0 {
		return ChainEntry{}, false, nil
	}
	return s.chain[len(s.chain)-1], true, nil
}

func (s *InMemoryStore) Entries(_ context.Context) ([]ChainEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChainEntry, len(s.chain))
	copy(out, s.chain)
	return out, nil
}
