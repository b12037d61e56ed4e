package service

import (
	"time"

	catalog "github.com/rkarimi/encore/internal/adapters/catalog"
	repository "github.com/rkarimi/encore/internal/adapters/repository"
	"github.com/rkarimi/encore/internal/domain/dedupe"
	"github.com/rkarimi/encore/internal/domain/queue"
	"github.com/rkarimi/encore/internal/domain/rating"
	"github.com/rkarimi/encore/pkg/logger"
)

// CandidateSet is the canonical logged-set input, produced by the catalog
// boundary.
type CandidateSet = catalog.CandidateSet

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the storage backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithUpdater substitutes the rating updater.
func WithUpdater(u rating.Updater) Option {
	return func(s *Service) {
		if u != nil {
			s.updater = u
		}
	}
}

// WithDeduper substitutes the idempotency cache.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithQueuePolicy sets the opponent ordering policy.
func WithQueuePolicy(p queue.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.queuePolicy = p
		}
	}
}

// WithMaxQueueSize caps opponents per ranking pass.
func WithMaxQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQueueSize = n
		}
	}
}

// WithBaselineRating sets the rating for freshly logged sets.
func WithBaselineRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.baseline = r
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard and history reads.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithRetryBudget bounds internal retries of transient storage failures.
func WithRetryBudget(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithDedupeSize bounds the idempotency cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock substitutes the time source; tests use this for stable
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator substitutes id generation; tests use this for stable ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
