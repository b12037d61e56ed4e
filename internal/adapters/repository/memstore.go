package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/rkarimi/encore/internal/domain/model"
)

// MemStore implements Store entirely in memory. One mutex guards all state,
// which makes CommitVote trivially atomic for readers; it doubles as the
// test backend and as the no-persistence run mode.
type MemStore struct {
	mu          sync.RWMutex
	sets        map[string]model.Set
	comparisons []model.Comparison
	dedupKeys   map[string]struct{} // owner|dedup_key
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sets:      make(map[string]model.Set),
		dedupKeys: make(map[string]struct{}),
	}
}

func (m *MemStore) CreateSet(_ context.Context, s model.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sets[s.ID]; exists {
		return ErrDuplicateSet
	}
	m.sets[s.ID] = s
	return nil
}

func (m *MemStore) GetSet(_ context.Context, id string) (model.Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sets[id]
	if !ok {
		return model.Set{}, ErrSetNotFound
	}
	return s, nil
}

func (m *MemStore) SetsByOwnerAndBucket(_ context.Context, ownerID string, bucket model.Bucket) ([]model.Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Set
	for _, s := range m.sets {
		if s.OwnerID == ownerID && s.Bucket == bucket {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemStore) CountByOwner(_ context.Context, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sets {
		if s.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) Rating(_ context.Context, id string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sets[id]
	if !ok {
		return 0, ErrSetNotFound
	}
	return s.Rating, nil
}

func (m *MemStore) CompareAndSetRating(_ context.Context, id string, oldRating, newRating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.casRatingLocked(id, oldRating, newRating)
}

// casRatingLocked performs the CAS; m.mu must be held for writing.
func (m *MemStore) casRatingLocked(id string, oldRating, newRating float64) error {
	s, ok := m.sets[id]
	if !ok {
		return ErrSetNotFound
	}
	if s.Rating != oldRating {
		return ErrRatingConflict
	}
	s.Rating = newRating
	m.sets[id] = s
	return nil
}

func (m *MemStore) TopByOwnerBucket(_ context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Set
	for _, s := range m.sets {
		if s.OwnerID == ownerID && s.Bucket == bucket {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating == out[j].Rating {
			return out[i].ID < out[j].ID
		}
		return out[i].Rating > out[j].Rating
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) AppendComparison(_ context.Context, c model.Comparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendComparisonLocked(c)
}

// appendComparisonLocked records the comparison; m.mu must be held.
func (m *MemStore) appendComparisonLocked(c model.Comparison) error {
	key := c.OwnerID + "|" + c.DedupKey
	if _, exists := m.dedupKeys[key]; exists {
		return ErrDuplicateComparison
	}
	m.dedupKeys[key] = struct{}{}
	m.comparisons = append(m.comparisons, c)
	return nil
}

func (m *MemStore) ComparisonsByOwner(_ context.Context, ownerID string, limit int) ([]model.Comparison, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Comparison
	for i := len(m.comparisons) - 1; i >= 0 && len(out) < limit; i-- {
		if m.comparisons[i].OwnerID == ownerID {
			out = append(out, m.comparisons[i])
		}
	}
	return out, nil
}

// CommitVote applies the comparison and both rating CAS writes under one
// lock. Readers never observe the comparison without the rating updates or
// vice versa.
func (m *MemStore) CommitVote(_ context.Context, cmp model.Comparison, winnerOld, winnerNew, loserOld, loserNew float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cmp.OwnerID + "|" + cmp.DedupKey
	if _, exists := m.dedupKeys[key]; exists {
		return false, nil // duplicate vote, reconciled silently
	}

	// Validate both CAS writes before touching anything.
	for _, w := range []struct {
		id       string
		old, new float64
	}{{cmp.WinnerID, winnerOld, winnerNew}, {cmp.LoserID, loserOld, loserNew}} {
		s, ok := m.sets[w.id]
		if !ok {
			return false, ErrSetNotFound
		}
		if s.Rating != w.old {
			return false, ErrRatingConflict
		}
	}

	if err := m.casRatingLocked(cmp.WinnerID, winnerOld, winnerNew); err != nil {
		return false, err
	}
	if err := m.casRatingLocked(cmp.LoserID, loserOld, loserNew); err != nil {
		return false, err
	}
	if err := m.appendComparisonLocked(cmp); err != nil {
		return false, err
	}
	return true, nil
}
