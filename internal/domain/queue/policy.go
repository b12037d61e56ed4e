package queue

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/rkarimi/encore/internal/domain/model"
)

// defaultShuffleSeed keeps the default builder deterministic for tests.
const defaultShuffleSeed = 42

// Policy orders the opponent candidates. Implementations must not present
// opponents in plain most-recent-first order: always comparing against what
// was just logged skews every rating toward recency. Given the same inputs
// and seed a policy must produce the same order.
type Policy interface {
	Order(opponents []model.Set) []string
}

// ShufflePolicy orders opponents with a seeded Fisher-Yates shuffle.
type ShufflePolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShufflePolicy creates a shuffle policy from a seed.
func NewShufflePolicy(seed int64) *ShufflePolicy {
	return &ShufflePolicy{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic seed for reproducible ordering
	}
}

// Order returns the opponent ids in shuffled order. Candidates are sorted
// by creation time first so the shuffle outcome depends only on the seed,
// not on repository iteration order.
func (p *ShufflePolicy) Order(opponents []model.Set) []string {
	ids := sortedIDs(opponents)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

// RoundRobinPolicy interleaves the oldest and newest candidates so no run
// of comparisons is dominated by one end of the logging history.
type RoundRobinPolicy struct{}

// Order alternates oldest, newest, second-oldest, second-newest, ...
func (RoundRobinPolicy) Order(opponents []model.Set) []string {
	ids := sortedIDs(opponents)
	out := make([]string, 0, len(ids))
	for lo, hi := 0, len(ids)-1; lo <= hi; lo, hi = lo+1, hi-1 {
		out = append(out, ids[lo])
		if lo != hi {
			out = append(out, ids[hi])
		}
	}
	return out
}

// sortedIDs returns opponent ids ordered by creation time, id as tiebreak.
func sortedIDs(opponents []model.Set) []string {
	sorted := make([]model.Set, len(opponents))
	copy(sorted, opponents)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	ids := make([]string, len(sorted))
	for i, s := range sorted {
		ids[i] = s.ID
	}
	return ids
}
