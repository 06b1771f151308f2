package geofence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// Index holds all zone definitions and answers containment queries.
//
// Reads run fully in parallel; each write is atomic as a whole, so a
// concurrent Contains never observes a half-applied update. The index has no
// precedence policy for overlapping fences: FencesContaining returns every
// match and callers decide.
type Index struct {
	mu     sync.RWMutex
	fences map[id.FenceID]GeoFence
}

func NewIndex() *Index {
	return &Index{fences: make(map[id.FenceID]GeoFence)}
}

// Add validates and stores a new fence, returning its assigned id.
// Errors: CodeInvalidInput / CodeInvalidGeometry.
func (ix *Index) Add(_ context.Context, fence GeoFence) (id.FenceID, error) {
	fence.ID = id.FenceID(uuid.New())
	if err := fence.Validate(); err != nil {
		return id.FenceID{}, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.fences[fence.ID] = fence
	return fence.ID, nil
}

// Update applies a patch atomically. The patched fence is validated before it
// replaces the stored one.
// Errors: CodeNotFound, CodeInvalidInput, CodeInvalidGeometry.
func (ix *Index) Update(_ context.Context, fenceID id.FenceID, patch Patch) (GeoFence, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	fence, ok := ix.fences[fenceID]
	if !ok {
		return GeoFence{}, dErrors.New(dErrors.CodeNotFound, "fence not found")
	}

	if patch.Name != nil {
		fence.Name = *patch.Name
	}
	if patch.RiskLevel != nil {
		fence.RiskLevel = *patch.RiskLevel
	}
	if patch.Category != nil {
		fence.Category = *patch.Category
	}
	if patch.IsActive != nil {
		fence.IsActive = *patch.IsActive
	}
	if patch.Geometry != nil {
		fence.Geometry = *patch.Geometry
	}
	if err := fence.Validate(); err != nil {
		return GeoFence{}, err
	}

	ix.fences[fenceID] = fence
	return fence, nil
}

// Remove soft-deactivates a fence. Historical alerts may reference it, so
// fences are never hard-deleted.
// Errors: CodeNotFound.
func (ix *Index) Remove(_ context.Context, fenceID id.FenceID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	fence, ok := ix.fences[fenceID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "fence not found")
	}
	fence.IsActive = false
	ix.fences[fenceID] = fence
	return nil
}

// Get returns one fence by id.
// Errors: CodeNotFound.
func (ix *Index) Get(_ context.Context, fenceID id.FenceID) (GeoFence, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	fence, ok := ix.fences[fenceID]
	if !ok {
		return GeoFence{}, dErrors.New(dErrors.CodeNotFound, "fence not found")
	}
	return fence, nil
}

// List returns all fences, optionally only active ones, ordered by id for a
// stable dashboard view.
func (ix *Index) List(_ context.Context, onlyActive bool) []GeoFence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]GeoFence, 0, len(ix.fences))
	for _, fence := range ix.fences {
		if onlyActive && !fence.IsActive {
			continue
		}
		out = append(out, fence)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Contains evaluates one fence against a point regardless of its active flag
// (operators examine historical zones too).
// Errors: CodeNotFound for an unknown fence id.
func (ix *Index) Contains(_ context.Context, p Point, fenceID id.FenceID) (bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	fence, ok := ix.fences[fenceID]
	if !ok {
		return false, dErrors.New(dErrors.CodeNotFound, "fence not found")
	}
	return fence.Geometry.contains(p), nil
}

// FencesContaining returns every active fence containing the point, ordered
// by id so equal-risk tie-breaks downstream are deterministic.
func (ix *Index) FencesContaining(_ context.Context, p Point) []GeoFence {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []GeoFence
	for _, fence := range ix.fences {
		if fence.IsActive && fence.Geometry.contains(p) {
			out = append(out, fence)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
