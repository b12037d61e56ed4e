// Package repository defines the storage contracts the ranking engine
// consumes and an in-memory implementation of them.
package repository

import (
	"context"

	"github.com/rkarimi/encore/internal/domain/model"
)

// SetRepository provides access to logged sets and their ratings.
type SetRepository interface {
	// CreateSet stores a newly logged set.
	// Returns ErrDuplicateSet if the id is already taken.
	CreateSet(ctx context.Context, s model.Set) error

	// GetSet returns a set by id. Returns ErrSetNotFound if unknown.
	GetSet(ctx context.Context, id string) (model.Set, error)

	// SetsByOwnerAndBucket returns all of the owner's sets in the bucket.
	SetsByOwnerAndBucket(ctx context.Context, ownerID string, bucket model.Bucket) ([]model.Set, error)

	// CountByOwner returns the owner's total number of logged sets.
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// Rating returns the current rating for a set.
	Rating(ctx context.Context, id string) (float64, error)

	// CompareAndSetRating writes newRating only if the stored rating still
	// equals oldRating. Returns ErrRatingConflict on a lost race; this is
	// the lost-update guard for concurrent votes on the same set.
	CompareAndSetRating(ctx context.Context, id string, oldRating, newRating float64) error

	// TopByOwnerBucket returns up to limit of the owner's sets in the
	// bucket, ordered by rating descending.
	TopByOwnerBucket(ctx context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error)
}

// ComparisonStore is the append-only audit trail of pairwise decisions.
type ComparisonStore interface {
	// AppendComparison records one decision. Rows are never updated or
	// deleted. Returns ErrDuplicateComparison when the owner-scoped dedup
	// key was already recorded.
	AppendComparison(ctx context.Context, c model.Comparison) error

	// ComparisonsByOwner returns the owner's most recent decisions,
	// newest first, up to limit.
	ComparisonsByOwner(ctx context.Context, ownerID string, limit int) ([]model.Comparison, error)
}

// VoteCommitter applies one vote as a single logical commit: the comparison
// row and both rating updates become visible together or not at all.
type VoteCommitter interface {
	// CommitVote returns applied=false without error when the dedup key
	// was already recorded, so a duplicate vote reconciles silently.
	// Returns ErrRatingConflict if either rating moved since it was read.
	CommitVote(ctx context.Context, cmp model.Comparison, winnerOld, winnerNew, loserOld, loserNew float64) (applied bool, err error)
}

// Store bundles everything the app layer needs from one backend.
type Store interface {
	SetRepository
	ComparisonStore
	VoteCommitter
}
