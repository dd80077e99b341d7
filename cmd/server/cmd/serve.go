package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/api"
	"github.com/placxborcx/Onboarding-MainPage/internal/api/handlers"
	"github.com/placxborcx/Onboarding-MainPage/internal/config"
	"github.com/placxborcx/Onboarding-MainPage/internal/jobs"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*rootOptions
	host string
	port int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the parkfinder HTTP server",
		Long: `Start the parkfinder HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (and --config if provided)
- Connect the database and cache backends when configured
- Start the geocoding cache cleanup job or sweeper
- Serve the landing page, JSON API and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  parkfinder serve

  # Start on a specific host and port
  parkfinder serve --host 127.0.0.1 --port 9090

  # Start with debug logging and a config file
  parkfinder serve --log-level debug --config /etc/parkfinder/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(opts *serveOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("environment", cfg.Environment).Msg("starting parkfinder server")

	metrics.Init(Version, GitCommit, BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	svc, err := buildServices(openCtx, cfg, logger)
	openCancel()
	if err != nil {
		return err
	}
	defer svc.Close()

	pool := svc.backends.Pool
	if pool != nil {
		metrics.Registry.MustRegister(metrics.NewPoolCollector(pool))
	}

	// River jobs log through slog like the rest of the job tooling.
	jobLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var riverClient *river.Client[pgx.Tx]
	expirer, needsSweeping := svc.backends.Expirer()
	switch {
	case cfg.Jobs.Enabled && pool != nil:
		var workerExpirer jobs.Expirer
		if needsSweeping {
			workerExpirer = expirer
		}
		riverClient, err = jobs.NewClient(pool,
			jobs.NewWorkers(workerExpirer, jobLogger),
			jobLogger,
			[]rivertype.Hook{metrics.NewRiverMetricsHook()},
			jobs.NewPeriodicJobs(cfg.Jobs.CleanupInterval),
		)
		if err != nil {
			return fmt.Errorf("river client: %w", err)
		}
		if err := riverClient.Start(ctx); err != nil {
			return fmt.Errorf("river workers failed to start: %w", err)
		}
		logger.Info().Msg("river background job workers started")
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("river workers shutdown error")
			} else {
				logger.Info().Msg("river workers stopped")
			}
		}()
	case needsSweeping:
		go jobs.RunSweeper(ctx, expirer, cfg.Jobs.CleanupInterval, jobLogger)
		logger.Info().Dur("interval", cfg.Jobs.CleanupInterval).Msg("geocoding cache sweeper started")
	}

	var cachePinger handlers.Pinger
	if p, ok := svc.backends.Cache.(handlers.Pinger); ok {
		cachePinger = p
	}

	build := api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
	router := api.NewRouter(cfg, logger, api.Services{
		Geocoder: svc.geocoding,
		Parking:  svc.parking,
		Signups:  svc.signups,
		Health:   handlers.NewHealthChecker(pool, riverClient, cachePinger, Version, GitCommit),
	}, build)
	defer router.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return gracefulShutdown(server, logger)
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
