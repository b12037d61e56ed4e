// Package queue builds the ordered opponent list a newly logged set must be
// compared against.
package queue

import (
	"context"
	"fmt"

	"github.com/rkarimi/encore/internal/domain/model"
)

// DefaultMaxSize bounds how many opponents one ranking pass may present.
const DefaultMaxSize = 10

// SetSource abstracts the repository reads the builder needs.
type SetSource interface {
	// SetsByOwnerAndBucket returns all of the owner's sets in the bucket.
	SetsByOwnerAndBucket(ctx context.Context, ownerID string, bucket model.Bucket) ([]model.Set, error)

	// CountByOwner returns the owner's total number of logged sets.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// Queue is the outcome of one build: either skip (nothing to compare
// against) or an ordered opponent list.
type Queue struct {
	Skip      bool
	Opponents []string
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithMaxSize caps the opponent queue length.
func WithMaxSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithPolicy sets the ordering policy.
func WithPolicy(p Policy) Option {
	return func(b *Builder) {
		if p != nil {
			b.policy = p
		}
	}
}

// Builder selects and orders opponents for a ranking pass.
type Builder struct {
	source  SetSource
	policy  Policy
	maxSize int
}

// NewBuilder creates a Builder with configuration options. The default
// policy is a shuffle seeded for deterministic test runs; production
// callers inject a time-seeded one.
func NewBuilder(source SetSource, opts ...Option) *Builder {
	b := &Builder{
		source:  source,
		policy:  NewShufflePolicy(defaultShuffleSeed),
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the opponent queue for newSetID. Skip is true when the owner
// has no other sets at all, or when newSetID is the only set in its bucket;
// in both cases there is nothing to compare against and the workflow must
// not open.
//
// Bucket membership may change between this read and the eventual vote; the
// commit path re-validates, so no guard is taken here.
func (b *Builder) Build(ctx context.Context, newSetID, ownerID string, bucket model.Bucket) (Queue, error) {
	total, err := b.source.CountByOwner(ctx, ownerID)
	if err != nil {
		return Queue{}, fmt.Errorf("counting owner sets: %w", err)
	}
	if total <= 1 {
		return Queue{Skip: true}, nil
	}

	sets, err := b.source.SetsByOwnerAndBucket(ctx, ownerID, bucket)
	if err != nil {
		return Queue{}, fmt.Errorf("loading bucket sets: %w", err)
	}

	opponents := make([]model.Set, 0, len(sets))
	for _, s := range sets {
		if s.ID != newSetID {
			opponents = append(opponents, s)
		}
	}
	if len(opponents) == 0 {
		return Queue{Skip: true}, nil
	}

	ordered := b.policy.Order(opponents)
	if len(ordered) > b.maxSize {
		ordered = ordered[:b.maxSize]
	}
	return Queue{Opponents: ordered}, nil
}
