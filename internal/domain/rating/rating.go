// Package rating computes Elo rating updates from pairwise outcomes.
package rating

import "math"

// Default Elo parameters.
const (
	// DefaultKFactor caps the rating points transferable per comparison.
	DefaultKFactor = 32.0
	// logisticBase and logisticScale come from the classic Elo formula:
	// expected = 1 / (1 + 10^((other-self)/400)).
	logisticBase  = 10.0
	logisticScale = 400.0
)

// Updater computes new ratings for the winner and loser of one comparison.
// Implementations must be pure: no I/O, no side effects, total over finite
// inputs.
type Updater interface {
	Update(winner, loser float64) (newWinner, newLoser float64)
}

// Option applies a configuration option to the EloUpdater.
type Option func(*EloUpdater)

// WithKFactor sets the K-factor. Values <= 0 are ignored and the default
// kept; a zero K-factor would make every comparison a no-op.
func WithKFactor(k float64) Option {
	return func(u *EloUpdater) {
		if k > 0 {
			u.kFactor = k
		}
	}
}

// EloUpdater implements Updater with the standard logistic Elo formula.
type EloUpdater struct {
	kFactor float64
}

// New creates an EloUpdater with configuration options.
func New(opts ...Option) *EloUpdater {
	u := &EloUpdater{kFactor: DefaultKFactor}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// KFactor returns the configured K-factor.
func (u *EloUpdater) KFactor() float64 { return u.kFactor }

// Update returns the post-comparison ratings. The transfer is zero-sum:
// the winner gains exactly what the loser gives up, because the two
// expected scores sum to 1.
func (u *EloUpdater) Update(winner, loser float64) (float64, float64) {
	expectedWinner := expectedScore(winner, loser)
	expectedLoser := expectedScore(loser, winner)

	newWinner := winner + u.kFactor*(1.0-expectedWinner)
	newLoser := loser + u.kFactor*(0.0-expectedLoser)
	return newWinner, newLoser
}

// expectedScore returns the probability that self beats other.
func expectedScore(self, other float64) float64 {
	return 1.0 / (1.0 + math.Pow(logisticBase, (other-self)/logisticScale))
}
