// Package service wires the ranking engine together: it owns the vote
// submission path and drives the workflow state machine on behalf of the
// HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	repository "github.com/rkarimi/encore/internal/adapters/repository"
	"github.com/rkarimi/encore/internal/domain/dedupe"
	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
	"github.com/rkarimi/encore/internal/domain/queue"
	"github.com/rkarimi/encore/internal/domain/rating"
	"github.com/rkarimi/encore/internal/domain/session"
	"github.com/rkarimi/encore/pkg/logger"
	"github.com/rkarimi/encore/pkg/metrics"
)

// Service implements the ranking engine behind the HTTP API.
type Service struct {
	store    repository.Store
	updater  rating.Updater
	builder  *queue.Builder
	sessions *session.Manager
	deduper  dedupe.Deduper

	baseline            float64
	maxQueueSize        int
	maxLeaderboardLimit int
	retryAttempts       int
	retryBackoff        time.Duration
	queuePolicy         queue.Policy
	dedupeSize          int

	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// OpenResult is the outcome of opening a ranking session.
type OpenResult struct {
	Skip      bool       `json:"skip"`
	FirstPair model.Pair `json:"first_pair,omitzero"`
	Remaining int        `json:"remaining,omitempty"`
}

// DecideResult is the outcome of one decision.
type DecideResult struct {
	Done      bool       `json:"done"`
	Duplicate bool       `json:"duplicate,omitempty"`
	NextPair  model.Pair `json:"next_pair,omitzero"`
	Remaining int        `json:"remaining,omitempty"`
}

// New constructs a Service with default configuration. The default store is
// in-memory; production injects the SQLite store.
func New(opts ...Option) *Service {
	s := &Service{
		baseline:            model.BaselineRating,
		maxQueueSize:        queue.DefaultMaxSize,
		maxLeaderboardLimit: 100,
		retryAttempts:       3,
		retryBackoff:        50 * time.Millisecond,
		dedupeSize:          50_000,
		logger:              logger.Nop(),
		now:                 func() time.Time { return time.Now().UTC() },
		newID:               uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.updater == nil {
		s.updater = rating.New()
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	builderOpts := []queue.Option{queue.WithMaxSize(s.maxQueueSize)}
	if s.queuePolicy != nil {
		builderOpts = append(builderOpts, queue.WithPolicy(s.queuePolicy))
	}
	s.builder = queue.NewBuilder(s.store, builderOpts...)
	s.sessions = session.NewManager()
	return s
}

// LogSet creates a new set for the owner at the baseline rating. This is the
// stand-in for the external ingestion collaborator; everything it accepts
// has already passed catalog normalization.
func (s *Service) LogSet(ctx context.Context, ownerID string, cand CandidateSet, bucket model.Bucket) (model.Set, error) {
	if ownerID == "" {
		return model.Set{}, errs.Authf("missing owner")
	}
	if !bucket.Valid() {
		return model.Set{}, errs.Validationf("unknown bucket %q", bucket)
	}

	set := model.Set{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Title:     cand.Title,
		Artist:    cand.Artist,
		Venue:     cand.Venue,
		Bucket:    bucket,
		Rating:    s.baseline,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSet(ctx, set); err != nil {
		return model.Set{}, fmt.Errorf("logging set: %w", err)
	}
	metrics.RecordSetLogged()
	s.logger.Info(ctx, "set logged",
		logger.String("setID", set.ID),
		logger.String("owner", ownerID),
		logger.String("bucket", string(bucket)),
	)
	return set, nil
}

// OpenSession starts the ranking workflow for a freshly logged set. When
// nothing is comparable the result is Skip and no session stays open.
func (s *Service) OpenSession(ctx context.Context, ownerID, setID string) (OpenResult, error) {
	set, err := s.store.GetSet(ctx, setID)
	if err != nil {
		return OpenResult{}, fmt.Errorf("loading set %s: %w", setID, err)
	}
	if set.OwnerID != ownerID {
		// Foreign sets are indistinguishable from missing ones.
		return OpenResult{}, repository.ErrSetNotFound
	}

	sess, err := s.sessions.Begin(ownerID, setID, set.Bucket)
	if err != nil {
		return OpenResult{}, err
	}

	start := time.Now()
	var q queue.Queue
	err = s.withRetry(ctx, "open", func() error {
		var buildErr error
		q, buildErr = s.builder.Build(ctx, setID, ownerID, set.Bucket)
		return buildErr
	})
	metrics.ObserveQueueBuild(time.Since(start).Seconds())
	if err != nil {
		sess.Fail()
		sess.Close()
		s.endSession(ownerID)
		metrics.RecordSessionErrored()
		return OpenResult{}, fmt.Errorf("building queue: %w", err)
	}

	if q.Skip {
		sess.Close()
		s.endSession(ownerID)
		metrics.RecordSessionSkipped()
		s.logger.Debug(ctx, "ranking skipped", logger.String("setID", setID))
		return OpenResult{Skip: true}, nil
	}

	if err := sess.Activate(q.Opponents); err != nil {
		s.endSession(ownerID)
		return OpenResult{}, err
	}
	metrics.RecordSessionOpened()
	metrics.UpdateActiveSessions(s.sessions.ActiveCount())

	pair, err := sess.CurrentPair()
	if err != nil {
		s.endSession(ownerID)
		return OpenResult{}, err
	}
	s.logger.Info(ctx, "ranking session opened",
		logger.String("setID", setID),
		logger.String("owner", ownerID),
		logger.Int("queue", len(q.Opponents)),
	)
	return OpenResult{FirstPair: pair, Remaining: sess.Remaining()}, nil
}

// Decide applies one comparison decision for the owner's active session.
// The token, when supplied by the client, makes an exact resubmit
// idempotent; otherwise the session id and queue position stand in for it.
func (s *Service) Decide(ctx context.Context, ownerID, winnerID, token string) (DecideResult, error) {
	sess, err := s.sessions.Get(ownerID)
	if err != nil {
		return DecideResult{}, err
	}

	loserID, err := sess.BeginDecide(winnerID)
	if err != nil {
		// Validation leaves the session awaiting the same pair.
		return DecideResult{}, err
	}

	if token == "" {
		token = fmt.Sprintf("%s:%d", sess.ID(), sess.Position())
	}
	applied, err := s.submitVote(ctx, winnerID, loserID, ownerID, token)
	if err != nil {
		sess.Fail()
		sess.Close()
		s.endSession(ownerID)
		metrics.RecordSessionErrored()
		return DecideResult{}, err
	}

	done, err := sess.CompleteDecide()
	if err != nil {
		s.endSession(ownerID)
		return DecideResult{}, err
	}
	if done {
		s.endSession(ownerID)
		metrics.RecordSessionCompleted()
		s.logger.Info(ctx, "ranking session completed", logger.String("owner", ownerID))
		return DecideResult{Done: true, Duplicate: !applied}, nil
	}

	pair, err := sess.CurrentPair()
	if err != nil {
		s.endSession(ownerID)
		return DecideResult{}, err
	}
	return DecideResult{NextPair: pair, Duplicate: !applied, Remaining: sess.Remaining()}, nil
}

// Cancel aborts the owner's active session. Votes already committed stay
// committed.
func (s *Service) Cancel(ctx context.Context, ownerID string) error {
	sess, err := s.sessions.Get(ownerID)
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}
	s.endSession(ownerID)
	metrics.RecordSessionCancelled()
	s.logger.Info(ctx, "ranking session cancelled", logger.String("owner", ownerID))
	return nil
}

// SubmitVote validates and commits one comparison outside a session; used
// by Decide and exposed for direct (re-driven) submissions.
func (s *Service) SubmitVote(ctx context.Context, winnerID, loserID, ownerID, token string) error {
	_, err := s.submitVote(ctx, winnerID, loserID, ownerID, token)
	return err
}

// submitVote reports applied=false when the vote was a reconciled duplicate.
func (s *Service) submitVote(ctx context.Context, winnerID, loserID, ownerID, token string) (bool, error) {
	if ownerID == "" {
		return false, errs.Authf("missing owner")
	}
	if winnerID == loserID {
		return false, errs.Validationf("a set cannot be compared against itself")
	}

	winner, err := s.store.GetSet(ctx, winnerID)
	if err != nil {
		return false, fmt.Errorf("loading winner: %w", err)
	}
	loser, err := s.store.GetSet(ctx, loserID)
	if err != nil {
		return false, fmt.Errorf("loading loser: %w", err)
	}
	if winner.OwnerID != ownerID || loser.OwnerID != ownerID {
		return false, repository.ErrSetNotFound
	}
	if winner.Bucket != loser.Bucket {
		return false, errs.Validationf("sets %s and %s are in different buckets", winnerID, loserID)
	}

	dedupKey := dedupe.Key(ownerID, winnerID, loserID, token)
	if s.deduper.SeenAndRecord(ctx, dedupKey) {
		metrics.RecordVoteDuplicate()
		s.logger.Debug(ctx, "duplicate vote short-circuited", logger.String("key", dedupKey))
		return false, nil
	}
	metrics.UpdateDedupeCacheEntries(s.deduper.Size())

	newWinner, newLoser := s.updater.Update(winner.Rating, loser.Rating)
	cmp := model.Comparison{
		ID:        s.newID(),
		OwnerID:   ownerID,
		WinnerID:  winnerID,
		LoserID:   loserID,
		DedupKey:  dedupKey,
		CreatedAt: s.now(),
	}

	start := time.Now()
	var applied bool
	err = s.withRetry(ctx, "commit", func() error {
		var commitErr error
		applied, commitErr = s.store.CommitVote(ctx, cmp, winner.Rating, newWinner, loser.Rating, newLoser)
		return commitErr
	})
	metrics.ObserveVoteCommit(time.Since(start).Seconds())
	if err != nil {
		// Allow a clean retry of the same decision.
		s.deduper.Unrecord(ctx, dedupKey)
		if errors.Is(err, errs.ErrConflict) {
			metrics.RecordCASConflict()
		}
		return false, fmt.Errorf("committing vote: %w", err)
	}
	if !applied {
		// The durable dedup index already held this vote.
		metrics.RecordVoteDuplicate()
		return false, nil
	}

	metrics.RecordVoteApplied()
	s.logger.Info(ctx, "vote applied",
		logger.String("winner", winnerID),
		logger.String("loser", loserID),
		logger.Float64("winnerRating", newWinner),
		logger.Float64("loserRating", newLoser),
	)
	return true, nil
}

// Leaderboard returns the owner's ranked view for one bucket.
func (s *Service) Leaderboard(ctx context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error) {
	if !bucket.Valid() {
		return nil, errs.Validationf("unknown bucket %q", bucket)
	}
	if limit <= 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	return s.store.TopByOwnerBucket(ctx, ownerID, bucket, limit)
}

// History returns the owner's most recent comparisons, newest first.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]model.Comparison, error) {
	if limit <= 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	return s.store.ComparisonsByOwner(ctx, ownerID, limit)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]interface{} {
	return map[string]interface{}{
		"activeSessions": s.sessions.ActiveCount(),
		"dedupeEntries":  s.deduper.Size(),
		"maxQueueSize":   s.maxQueueSize,
		"retryAttempts":  s.retryAttempts,
	}
}

func (s *Service) endSession(ownerID string) {
	s.sessions.End(ownerID)
	metrics.UpdateActiveSessions(s.sessions.ActiveCount())
}

// withRetry runs fn, retrying transient failures with doubling backoff up
// to the configured budget. Non-transient errors surface immediately.
func (s *Service) withRetry(ctx context.Context, step string, fn func() error) error {
	backoff := s.retryBackoff
	var err error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if err = fn(); err == nil || !errs.Retryable(err) {
			return err
		}
		if attempt == s.retryAttempts-1 {
			break
		}
		metrics.RecordTransientRetry(step)
		s.logger.Warn(ctx, "transient failure, retrying",
			logger.String("step", step),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return errs.Transientf("%s aborted: %v", step, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
