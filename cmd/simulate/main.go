package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/rkarimi/encore/internal/simulation"
	"github.com/rkarimi/encore/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers    = 25
	defaultSetsPerUser = 12
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numUsers    = flag.Int("users", defaultNumUsers, "Number of simulated users")
		setsPerUser = flag.Int("sets", defaultSetsPerUser, "Sets each user logs and ranks")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed        = flag.Int64("seed", 0, "Seed for deterministic generation (0 = time-seeded)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulation.Config{
		BaseURL:     *baseURL,
		NumUsers:    *numUsers,
		SetsPerUser: *setsPerUser,
		Workers:     *workers,
		Timeout:     *timeout,
		Seed:        *seed,
		Verbose:     *verbose,
	}

	if err := simulation.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
