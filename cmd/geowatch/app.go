package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/geowatch/geowatch/bus"
	"github.com/geowatch/geowatch/config"
	"github.com/geowatch/geowatch/ingest"
	"github.com/geowatch/geowatch/llm"
	"github.com/geowatch/geowatch/region"
	"github.com/geowatch/geowatch/server"
	"github.com/geowatch/geowatch/storage"
)

// app holds the wired components for one process. All clients are built
// here from explicit configuration; no package-level singletons.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	pipeline *ingest.Pipeline
	planner  *region.Planner
	bus      *bus.Publisher
	logger   *slog.Logger
}

// buildApp loads configuration and wires the pipeline.
func buildApp(ctx context.Context, configPath string) (*app, error) {
	logger := slog.Default()

	cfg, err := config.NewLoader(logger).Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := storage.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := storage.New(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	regions := region.DefaultRegions()
	if cfg.RegionsFile != "" {
		regions, err = region.LoadFile(cfg.RegionsFile)
		if err != nil {
			store.Close()
			return nil, err
		}
	}
	planner := region.NewPlanner(regions)

	provider := llm.GetProvider(cfg.Provider.Name)
	if provider == nil {
		store.Close()
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider.Name)
	}

	client := llm.NewClient(
		llm.Endpoint{
			Provider: cfg.Provider.Name,
			BaseURL:  cfg.Provider.Endpoint,
			Model:    cfg.Provider.Model,
			APIKey:   cfg.Provider.APIKey,
		},
		llm.WithLogger(logger),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxRetries:  cfg.Fetch.MaxRetries,
			DefaultWait: cfg.Fetch.RateLimitWait,
			WaitMargin:  2 * time.Second,
		}),
	)

	source := ingest.NewSource(client, cfg.Fetch.TargetCount, cfg.Fetch.Temperature)

	var announcer ingest.Announcer
	var publisher *bus.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = bus.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		announcer = publisher
	}

	pipeline := ingest.New(source, store, planner, announcer, ingest.Options{
		Dispatch:    cfg.Fetch.Dispatch,
		BatchDelay:  cfg.Fetch.BatchDelay,
		SourceLabel: provider.SourceLabel(),
	}, logger)

	return &app{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		planner:  planner,
		bus:      publisher,
		logger:   logger,
	}, nil
}

func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	a.store.Close()
}

// fetchCmd runs a single ingestion cycle and exits — the external-cron
// deployment mode.
func fetchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Run one ingestion cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := buildApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.pipeline.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("cycle %s: published %d events in %s\n",
				result.CycleID, result.Processed, result.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

// serveCmd starts the HTTP surface and, when configured, the periodic
// scheduler and the regions-file watcher.
func serveCmd(configPath *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with on-demand and periodic ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := buildApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if interval > 0 {
				a.cfg.Scheduler.Interval = interval
			}

			srv := server.New(a.pipeline, a.store, server.Options{
				EventsLimit: a.cfg.Server.EventsLimit,
			}, a.logger)

			httpSrv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      srv.Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 15 * time.Minute, // ingest trigger runs the cycle inline
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("HTTP server listening", "addr", a.cfg.Server.Addr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			if a.cfg.Scheduler.Interval > 0 {
				go a.runScheduler(ctx)
			}

			if a.cfg.RegionsFile != "" {
				watcher, err := region.NewWatcher(a.cfg.RegionsFile, a.planner, a.logger)
				if err != nil {
					a.logger.Warn("Regions watcher unavailable", "error", err)
				} else {
					defer watcher.Close()
					go watcher.Start(ctx)
				}
			}

			select {
			case <-ctx.Done():
				a.logger.Info("Received shutdown signal")
			case err := <-errCh:
				return fmt.Errorf("HTTP server: %w", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("HTTP shutdown error", "error", err)
			}

			a.logger.Info("Geowatch shutdown complete")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Run an ingestion cycle every interval (0 disables)")
	return cmd
}

// runScheduler triggers cycles on a fixed interval. The first cycle runs
// immediately so a fresh deployment has data without waiting.
func (a *app) runScheduler(ctx context.Context) {
	a.logger.Info("Scheduler started", "interval", a.cfg.Scheduler.Interval)

	ticker := time.NewTicker(a.cfg.Scheduler.Interval)
	defer ticker.Stop()

	runOnce := func() {
		if _, err := a.pipeline.Run(ctx); err != nil {
			a.logger.Error("Scheduled cycle failed", "error", err)
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
