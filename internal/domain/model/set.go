// Package model contains domain models passed between layers.
package model

import "time"

// BaselineRating is the rating assigned to a freshly logged set before any
// comparison has been recorded against it.
const BaselineRating = 1500.0

// Bucket is the qualitative sentiment tag that scopes which sets may be
// compared against each other. Comparisons never cross buckets.
type Bucket string

const (
	BucketLiked    Bucket = "liked"
	BucketNeutral  Bucket = "neutral"
	BucketDisliked Bucket = "disliked"
)

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketLiked, BucketNeutral, BucketDisliked:
		return true
	}
	return false
}

// Set represents a logged live-music experience owned by a single user.
// The rating field is only ever written through the vote commit path.
type Set struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Venue     string    `json:"venue"`
	Bucket    Bucket    `json:"bucket"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Comparison is an immutable, append-only record of one pairwise decision.
// Rows are created by the vote commit path and never updated or deleted.
type Comparison struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	WinnerID  string    `json:"winner_id"`
	LoserID   string    `json:"loser_id"`
	DedupKey  string    `json:"dedup_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Pair is one comparison presented to the user: the newly logged set (A)
// against the current opponent (B).
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}
