package simulation

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/rkarimi/encore/pkg/logger"
)

// baselineRating must match the engine's starting rating. Every comparison
// is a zero-sum transfer, so per bucket the mean rating never moves.
const baselineRating = 1500.0

// ratingTolerance absorbs float accumulation across many transfers.
const ratingTolerance = 1e-6

// verifyResults checks the engine's conservation and ordering invariants
// through the public read API.
func verifyResults(ctx context.Context, config *Config, client *Client, stats *Stats) error {
	logger.Get().Info(ctx, "verifying leaderboards")

	for _, user := range userIDs(config.NumUsers) {
		for _, bucket := range buckets {
			if err := verifyBucket(ctx, client, user, bucket); err != nil {
				return fmt.Errorf("user %s bucket %s: %w", user, bucket, err)
			}
		}
		stats.UsersVerified++
	}

	logger.Get().Info(ctx, "verification passed", logger.Int("users", stats.UsersVerified))
	return nil
}

func verifyBucket(ctx context.Context, client *Client, user, bucket string) error {
	var board []boardEntry
	status, err := client.Get(ctx, user, "/leaderboard?bucket="+bucket, &board)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("leaderboard returned status %d", status)
	}

	total := 0.0
	for i, entry := range board {
		total += entry.Rating
		if i > 0 && entry.Rating > board[i-1].Rating {
			return fmt.Errorf("leaderboard out of order at position %d: %.2f after %.2f",
				i, entry.Rating, board[i-1].Rating)
		}
	}

	expected := baselineRating * float64(len(board))
	if math.Abs(total-expected) > ratingTolerance*math.Max(1, expected) {
		return fmt.Errorf("rating mass not conserved: got %.6f, want %.6f", total, expected)
	}
	return nil
}
