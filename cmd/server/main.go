package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/collabboard/internal/auth"
	"github.com/blackmichael/collabboard/internal/config"
	"github.com/blackmichael/collabboard/internal/domain"
	"github.com/blackmichael/collabboard/internal/httpserver"
	"github.com/blackmichael/collabboard/internal/livefeed"
	"github.com/blackmichael/collabboard/internal/postgres"
	"github.com/blackmichael/collabboard/internal/ratelimit"
	"github.com/blackmichael/collabboard/internal/sqlite"
)

const (
	sweepInterval = time.Minute
	throttleIdle  = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// store is what the board needs from either database backend.
type store interface {
	domain.PostRepository
	domain.AdminRepository
	Close() error
}

func openStore(cfg *config.Config) (store, error) {
	if cfg.IsPostgres() {
		repo, err := postgres.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	repo, err := sqlite.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up repository (implements both PostRepository and AdminRepository)
	repo, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to database", "postgres", cfg.IsPostgres())

	limiter := ratelimit.New[int64](
		ratelimit.WithWindow(cfg.FailureWindow),
		ratelimit.WithMaxFailures(cfg.FailureLimit),
	)
	adminLimiter := ratelimit.New[int64](
		ratelimit.WithWindow(cfg.FailureWindow),
		ratelimit.WithMaxFailures(cfg.FailureLimit),
	)
	hub := livefeed.NewHub(cfg.AllowedOrigin, logger)

	board := domain.NewBoardService(
		repo, repo,
		auth.NewBcryptHasher(cfg.BcryptCost),
		limiter,
		logger,
		domain.WithMaxPostAge(cfg.MaxPostAge),
		domain.WithEvents(hub),
		domain.WithAdminLimiter(adminLimiter),
	)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := board.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin credential: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	server := httpserver.NewServer(cfg, board, hub, logger)

	// Start background sweep of idle rate-limit state
	go sweep(ctx, logger, sweepInterval, func() sweepStats {
		return sweepStats{
			Posts:         limiter.Sweep(),
			Clients:       server.SweepThrottle(throttleIdle),
			Admin:         adminLimiter.Sweep(),
			TrackedPosts:  limiter.Len(),
			AdminTracked:  adminLimiter.Len() > 0,
			FeedListeners: hub.Len(),
		}
	})

	// Start the HTTP server
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	hub.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// sweepStats is what one sweep removed and what is still held afterwards.
type sweepStats struct {
	Posts   int
	Clients int
	Admin   int

	TrackedPosts  int
	AdminTracked  bool
	FeedListeners int
}

func (s sweepStats) removed() bool {
	return s.Posts > 0 || s.Clients > 0 || s.Admin > 0
}

// sweep runs fn every interval until ctx is cancelled.
func sweep(ctx context.Context, logger *slog.Logger, interval time.Duration, fn func() sweepStats) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := fn()
			if !st.removed() {
				continue
			}
			logger.Info("swept rate limit state",
				"posts", st.Posts,
				"clients", st.Clients,
				"admin", st.Admin,
				"tracked_posts", st.TrackedPosts,
				"admin_failures_tracked", st.AdminTracked,
				"feed_subscribers", st.FeedListeners,
			)
		}
	}
}
