package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wxrouter/wxrouter/config"
	"github.com/wxrouter/wxrouter/internal/api"
	"github.com/wxrouter/wxrouter/internal/auth"
	"github.com/wxrouter/wxrouter/internal/database"
	"github.com/wxrouter/wxrouter/internal/feed"
	"github.com/wxrouter/wxrouter/internal/logger"
	"github.com/wxrouter/wxrouter/internal/metrics"
	middlewares "github.com/wxrouter/wxrouter/internal/middleware"
	"github.com/wxrouter/wxrouter/internal/poller"
	"github.com/wxrouter/wxrouter/internal/ratelimit"
	"github.com/wxrouter/wxrouter/internal/schema"
	"github.com/wxrouter/wxrouter/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env when present; real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting weather alert router",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	// Evolve the schema before anything touches the tables. Individual
	// steps may be skipped on restricted roles; failures are logged per
	// step and never abort startup.
	if db.IsConfigured() {
		schema.Evolve(ctx, db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	alertStore := store.New(db)
	keys := auth.NewRepository(db)
	feedClient := feed.NewClient(cfg.Feed)

	var limiter *ratelimit.Manager
	if cfg.Redis.URL != "" {
		limiter, err = ratelimit.NewManager(cfg.Redis.URL, cfg.Redis.RPM)
		if err != nil {
			logger.Warn("Rate limiting disabled", "error", err)
			limiter = nil
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	// Background pollers
	if cfg.Poller.Enabled {
		alertPoller := poller.NewAlertPoller(feedClient, alertStore, cfg.Poller)
		g.Go(func() error {
			return alertPoller.Run(ctx)
		})
	}
	if cfg.Outlook.Enabled {
		outlookPoller := poller.NewOutlookPoller(feedClient, alertStore, cfg.Outlook)
		g.Go(func() error {
			return outlookPoller.Run(ctx)
		})
	}

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.Server.CORSOrigins))

	// Initialize API handlers
	apiHandler := api.NewHandler(alertStore, keys, limiter, cfg.Admin, Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Shut the server down when a signal arrives or a poller fails.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}
