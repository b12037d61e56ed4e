package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkarimi/encore/pkg/logger"
)

// counters aggregates progress across user goroutines.
type counters struct {
	setsLogged      int64
	sessionsOpened  int64
	sessionsSkipped int64
	decisionsMade   int64
	duplicates      int64
	failed          int64
}

// Run executes the complete ranking simulation against a running service.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting ranking simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("setsPerUser", config.SetsPerUser),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	client := NewClient(config.BaseURL, config.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i, user := range userIDs(config.NumUsers) {
		user := user
		rng := rand.New(rand.NewSource(seed + int64(i))) //nolint:gosec // load generation only
		g.Go(func() error {
			return driveUser(gctx, config, client, user, rng, &c)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("simulation run failed: %w", err)
	}

	stats.SetsLogged = int(atomic.LoadInt64(&c.setsLogged))
	stats.SessionsOpened = int(atomic.LoadInt64(&c.sessionsOpened))
	stats.SessionsSkipped = int(atomic.LoadInt64(&c.sessionsSkipped))
	stats.DecisionsMade = int(atomic.LoadInt64(&c.decisionsMade))
	stats.Duplicates = int(atomic.LoadInt64(&c.duplicates))
	stats.Failed = int(atomic.LoadInt64(&c.failed))

	if err := verifyResults(ctx, config, client, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// driveUser logs the user's sets one by one and plays out every ranking
// session to completion, the same order a real client would.
func driveUser(ctx context.Context, config *Config, client *Client, user string, rng *rand.Rand, c *counters) error {
	for _, cand := range generateCandidates(rng, user, config.SetsPerUser) {
		var set setResponse
		status, err := client.Post(ctx, user, "/sets", cand.request, &set)
		if err != nil {
			return fmt.Errorf("logging set for %s: %w", user, err)
		}
		if status != http.StatusCreated {
			atomic.AddInt64(&c.failed, 1)
			continue
		}
		atomic.AddInt64(&c.setsLogged, 1)

		if err := rankSet(ctx, client, user, set.ID, rng, c); err != nil {
			return fmt.Errorf("ranking set for %s: %w", user, err)
		}
	}
	return nil
}

// rankSet opens a session for the set and decides every pair. Winners are
// picked at random; the engine, not the simulation, owns the outcome.
func rankSet(ctx context.Context, client *Client, user, setID string, rng *rand.Rand, c *counters) error {
	var opened openResponse
	status, err := client.Post(ctx, user, "/rankings/open", openRequest{SetID: setID}, &opened)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		atomic.AddInt64(&c.failed, 1)
		return nil
	}
	if opened.Skip {
		atomic.AddInt64(&c.sessionsSkipped, 1)
		return nil
	}
	atomic.AddInt64(&c.sessionsOpened, 1)

	current := opened.FirstPair
	for {
		winner := current.A
		if rng.Intn(2) == 0 {
			winner = current.B
		}

		var decided decideResponse
		status, err := client.Post(ctx, user, "/rankings/decide", decideRequest{WinnerID: winner}, &decided)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			atomic.AddInt64(&c.failed, 1)
			// Abandon the session so the next open does not conflict.
			_, _ = client.Post(ctx, user, "/rankings/cancel", struct{}{}, nil)
			return nil
		}
		atomic.AddInt64(&c.decisionsMade, 1)
		if decided.Duplicate {
			atomic.AddInt64(&c.duplicates, 1)
		}
		if decided.Done {
			return nil
		}
		current = decided.NextPair
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *Client) error {
	logger.Get().Info(ctx, "checking service health")

	status, err := client.Get(ctx, "", "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var decisionsPerSecond float64
	if stats.Duration > 0 {
		decisionsPerSecond = float64(stats.DecisionsMade) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("setsLogged", stats.SetsLogged),
		logger.Int("sessionsOpened", stats.SessionsOpened),
		logger.Int("sessionsSkipped", stats.SessionsSkipped),
		logger.Int("decisionsMade", stats.DecisionsMade),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("usersVerified", stats.UsersVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("decisionsPerSecond", decisionsPerSecond))
}
