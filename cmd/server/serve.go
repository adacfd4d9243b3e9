package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andres10976/slotwatch/internal/config"
	"github.com/andres10976/slotwatch/internal/handler"
	"github.com/andres10976/slotwatch/internal/middleware"
	"github.com/andres10976/slotwatch/internal/service/marketplace"
	"github.com/andres10976/slotwatch/internal/service/monitor"
	"github.com/andres10976/slotwatch/internal/service/notify"
	"github.com/andres10976/slotwatch/internal/service/setup"
	"github.com/andres10976/slotwatch/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the monitoring engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.RequireMarketplace(); err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// No task survives a restart, so the persisted flag cannot be trusted.
	wasActive, err := store.resetActive(ctx)
	if err != nil {
		return err
	}

	client, catalog, closeCache, err := newMarketplace(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	clock := clockwork.NewRealClock()
	notifier, closeNotify, err := newNotifier(cfg, clock, logger)
	if err != nil {
		return err
	}
	defer closeNotify()

	metrics := telemetry.New()
	engine, err := newEngine(cfg, engineDeps{
		store:    store,
		client:   client,
		catalog:  catalog,
		notifier: notifier,
		metrics:  metrics,
		clock:    clock,
	}, logger)
	if err != nil {
		return err
	}
	editor := setup.New(store.config, engine, logger)

	resumeMonitoring(ctx, engine, wasActive && cfg.Engine.ResumeOnBoot, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.WithLogger(logger))
	r.Use(middleware.Recovery)

	r.Get("/healthz", handler.Health(store.ping))
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.Middleware)
		handler.NewMonitorHandler(engine).RegisterRoutes(r)
		handler.NewConfigHandler(editor).RegisterRoutes(r)
		handler.NewCatalogHandler(catalog, client).RegisterRoutes(r)
		handler.NewFavoritesHandler(store.favorites).RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.ServerPort).Str("store", cfg.StoreBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	logger.Info().Msg("shutting down")

	// The persisted flag stays set so the next boot can resume.
	if err := engine.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("stopping engine")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type engineDeps struct {
	store    *storage
	client   *marketplace.Client
	catalog  *marketplace.CachedCatalog
	notifier *notify.Notifier
	metrics  *telemetry.Metrics
	clock    clockwork.Clock
}

func newEngine(cfg *config.Config, d engineDeps, logger zerolog.Logger) (*monitor.Engine, error) {
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	return monitor.New(monitor.Deps{
		Upstream: d.client,
		Catalog:  d.catalog,
		Store:    d.store.config,
		Notifier: d.notifier,
		Metrics:  d.metrics,
		Clock:    d.clock,
		Logger:   logger,
	}, monitor.Options{
		DraftPeriod:  cfg.Engine.DraftPeriod,
		ProbePeriod:  cfg.Engine.ProbePeriod,
		PollAttempts: cfg.Engine.PollAttempts,
		PollDelay:    cfg.Engine.PollDelay,
		CandidateGap: cfg.Engine.CandidateGap,
		HorizonDays:  cfg.Engine.HorizonDays,
		Location:     loc,
	}), nil
}

// resumeMonitoring restarts monitoring that was active when the previous
// process exited. A failed resume leaves the engine stopped.
func resumeMonitoring(ctx context.Context, engine *monitor.Engine, resume bool, logger zerolog.Logger) {
	if !resume {
		return
	}
	if err := engine.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not resume monitoring")
		return
	}
	logger.Info().Msg("monitoring resumed")
}
