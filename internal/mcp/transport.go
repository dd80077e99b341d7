package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/middleware"
)

// TransportType represents the available MCP transport protocols.
type TransportType string

const (
	// TransportStdio uses standard input/output. Logs must go to stderr.
	TransportStdio TransportType = "stdio"
	// TransportSSE uses Server-Sent Events.
	TransportSSE TransportType = "sse"
	// TransportHTTP uses Streamable HTTP.
	TransportHTTP TransportType = "http"
)

const (
	DefaultTransport = TransportStdio
	DefaultPort      = 8081

	// GracefulShutdownTimeout bounds how long in-flight HTTP requests may run
	// after the context is cancelled.
	GracefulShutdownTimeout = 30 * time.Second
)

// TransportConfig holds configuration for MCP transport selection.
type TransportConfig struct {
	Type TransportType
	// Port and Host are ignored for stdio.
	Port int
	Host string
}

// LoadTransportConfig reads MCP_TRANSPORT, MCP_PORT and MCP_HOST.
func LoadTransportConfig() (*TransportConfig, error) {
	cfg := &TransportConfig{
		Type: DefaultTransport,
		Port: DefaultPort,
		Host: "127.0.0.1",
	}

	if transportEnv := os.Getenv("MCP_TRANSPORT"); transportEnv != "" {
		transport := TransportType(transportEnv)
		switch transport {
		case TransportStdio, TransportSSE, TransportHTTP:
			cfg.Type = transport
		default:
			return nil, fmt.Errorf("invalid MCP_TRANSPORT value: %s (must be stdio, sse, or http)", transportEnv)
		}
	}

	if portEnv := os.Getenv("MCP_PORT"); portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MCP_PORT value: %s (must be a number)", portEnv)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid MCP_PORT value: %d (must be between 1 and 65535)", port)
		}
		cfg.Port = port
	}

	if hostEnv := os.Getenv("MCP_HOST"); hostEnv != "" {
		cfg.Host = hostEnv
	}

	return cfg, nil
}

// Serve runs the MCP server on the configured transport until ctx ends.
// HTTP transports share the API's rate limiter when one is given.
func Serve(ctx context.Context, mcpServer *server.MCPServer, cfg *TransportConfig, limiter *middleware.RateLimiter, logger zerolog.Logger) error {
	switch cfg.Type {
	case TransportStdio:
		return serveStdio(ctx, mcpServer, logger)
	case TransportSSE:
		return serveHTTP(ctx, server.NewSSEServer(mcpServer), cfg, limiter, logger)
	case TransportHTTP:
		return serveHTTP(ctx, server.NewStreamableHTTPServer(mcpServer), cfg, limiter, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

func serveStdio(ctx context.Context, mcpServer *server.MCPServer, logger zerolog.Logger) error {
	logger.Info().Str("transport", string(TransportStdio)).Msg("starting MCP server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ServeStdio(mcpServer); err != nil {
			errCh <- fmt.Errorf("stdio server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("context cancelled, stdio server stopping")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func serveHTTP(ctx context.Context, handler http.Handler, cfg *TransportConfig, limiter *middleware.RateLimiter, logger zerolog.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           WrapHandler(handler, limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server error: %w", cfg.Type, err)
		}
		close(errCh)
	}()
	logger.Info().Str("transport", string(cfg.Type)).Str("addr", addr).Msg("MCP server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s server shutdown error: %w", cfg.Type, err)
		}
		logger.Info().Str("transport", string(cfg.Type)).Msg("MCP server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

// WrapHandler applies request IDs, request logging and the public rate limit
// to an MCP HTTP handler.
func WrapHandler(handler http.Handler, limiter *middleware.RateLimiter, logger zerolog.Logger) http.Handler {
	wrapped := handler
	if limiter != nil {
		wrapped = limiter.Middleware(wrapped)
	}
	wrapped = middleware.RequestLogging(logger)(wrapped)
	return middleware.CorrelationID(logger)(wrapped)
}
