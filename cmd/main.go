package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkarimi/encore/internal/adapters/http/api"
	"github.com/rkarimi/encore/internal/adapters/repository"
	"github.com/rkarimi/encore/internal/adapters/storage"
	service "github.com/rkarimi/encore/internal/app"
	"github.com/rkarimi/encore/internal/config"
	"github.com/rkarimi/encore/internal/domain/queue"
	"github.com/rkarimi/encore/internal/domain/rating"
	"github.com/rkarimi/encore/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
		return
	}
	defer closeStore()

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithUpdater(rating.New(rating.WithKFactor(cfg.KFactor))),
		service.WithQueuePolicy(queuePolicy(cfg)),
		service.WithMaxQueueSize(cfg.MaxQueueSize),
		service.WithBaselineRating(cfg.BaselineRating),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		service.WithRetryBudget(cfg.RetryAttempts, time.Duration(cfg.RetryBackoffMS)*time.Millisecond),
		service.WithDedupeSize(cfg.DedupeSize),
	)

	apiServer := api.NewServer(svc, cfg.MaxLeaderboardLimit)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "server exited", logger.Error(err))
		return
	}
	log.Info(ctx, "server stopped")
}

// openStore selects the backend: SQLite when a data directory is configured,
// otherwise everything stays in memory.
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	if cfg.DataDir == "" {
		return repository.NewMemStore(), func() {}, nil
	}
	st, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// queuePolicy builds the opponent ordering from configuration.
func queuePolicy(cfg *config.Config) queue.Policy {
	if cfg.QueuePolicy == "roundrobin" {
		return queue.RoundRobinPolicy{}
	}
	seed := cfg.QueueSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return queue.NewShufflePolicy(seed)
}
