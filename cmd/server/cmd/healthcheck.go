package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the body served by /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheckResult is the outcome of one probe.
type HealthCheckResult struct {
	URL       string
	Status    string
	IsHealthy bool
	LatencyMs int64
	Error     string
}

type healthcheckOptions struct {
	timeout time.Duration
	url     string
}

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy, non-zero otherwise.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy, degraded or unreachable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := performHealthCheck(healthcheckURL(opts.url), opts.timeout)
			if !result.IsHealthy {
				if result.Error != "" {
					return fmt.Errorf("health check failed: %s", result.Error)
				}
				return fmt.Errorf("unhealthy: status=%s", result.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%dms)\n", result.Status, result.LatencyMs)
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	return cmd
}

func healthcheckURL(flag string) string {
	if flag != "" {
		return flag
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

func performHealthCheck(url string, timeout time.Duration) HealthCheckResult {
	result := HealthCheckResult{URL: url}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("invalid response (status %d): %v", resp.StatusCode, err)
		return result
	}
	result.Status = body.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "healthy"
	return result
}
