package safety

import (
	"context"
	"sort"
	"sync"

	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
)

// Store persists safety records with per-token mutual exclusion: concurrent
// updates for one tourist serialize, updates for different tourists never
// block each other.
type Store interface {
	Create(ctx context.Context, record Record) error
	Find(ctx context.Context, token id.TouristToken) (Record, error)
	// Execute runs apply under the token's lock and returns the updated record.
	Execute(ctx context.Context, token id.TouristToken, apply func(*Record) error) (Record, error)
	List(ctx context.Context) ([]Record, error)
}

type lockedRecord struct {
	mu     sync.Mutex
	record Record
}

// InMemoryStore keys one lock per tourist. The outer RW mutex only guards the
// map structure, never a record mutation, so the per-token discipline holds.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.TouristToken]*lockedRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.TouristToken]*lockedRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.Token]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.Token] = &lockedRecord{record: record}
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, token id.TouristToken) (Record, error) {
	s.mu.RLock()
	entry, ok := s.records[token]
	s.mu.RUnlock()
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copyRecord(entry.record), nil
}

func (s *InMemoryStore) Execute(_ context.Context, token id.TouristToken, apply func(*Record) error) (Record, error) {
	s.mu.RLock()
	entry, ok := s.records[token]
	s.mu.RUnlock()
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := apply(&entry.record); err != nil {
		return Record{}, err
	}
	return copyRecord(entry.record), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	entries := make([]*lockedRecord, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, copyRecord(entry.record))
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func copyRecord(r Record) Record {
	clone := r
	if r.LastLocation != nil {
		p := *r.LastLocation
		clone.LastLocation = &p
	}
	return clone
}
