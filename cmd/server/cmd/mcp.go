package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/middleware"
	"github.com/placxborcx/Onboarding-MainPage/internal/mcp"
)

func newMCPCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server for assistants",
		Long: `Run a Model Context Protocol server exposing parking search, suggestions,
geocoding and result normalization as tools.

The transport is chosen by MCP_TRANSPORT (stdio, sse or http; default stdio).
HTTP transports listen on MCP_HOST:MCP_PORT (default 127.0.0.1:8081).
Logs always go to stderr so stdio stays clean for protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := stderrLogger(cfg)
			log.Logger = logger

			transport, err := mcp.LoadTransportConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			svc, err := buildServices(openCtx, cfg, logger)
			cancel()
			if err != nil {
				return err
			}
			defer svc.Close()

			server := mcp.NewServer(
				mcp.Config{Name: "parkfinder", Version: Version},
				mcp.Services{Parking: svc.parking, Geocoder: svc.geocoding},
			)

			limiter := middleware.NewRateLimiter(cfg.RateLimit)
			defer limiter.Stop()

			logger.Info().
				Str("transport", string(transport.Type)).
				Str("environment", cfg.Environment).
				Msg("starting MCP server")

			err = mcp.Serve(ctx, server.MCPServer(), transport, limiter, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
