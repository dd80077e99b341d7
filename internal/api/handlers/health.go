package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Querier is the part of a pgx pool the checks use.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger is a backend that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports on the optional backends. The service runs without a
// database or a shared cache, so a missing backend passes.
type HealthChecker struct {
	db          Querier
	riverClient *river.Client[pgx.Tx]
	cache       Pinger
	version     string
	gitCommit   string
	timeout     time.Duration
}

// NewHealthChecker creates a health checker. pool, riverClient and cache may be nil.
func NewHealthChecker(pool *pgxpool.Pool, riverClient *river.Client[pgx.Tx], cache Pinger, version, gitCommit string) *HealthChecker {
	h := &HealthChecker{
		riverClient: riverClient,
		cache:       cache,
		version:     version,
		gitCommit:   gitCommit,
		timeout:     2 * time.Second,
	}
	if pool != nil {
		h.db = pool
	}
	return h
}

// Health returns the detailed health handler
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
			"cache":      h.checkCache(ctx),
		}

		overallStatus := "healthy"
		statusCode := http.StatusOK
		for name, check := range checks {
			metrics.HealthCheckStatus.WithLabelValues(name).Set(statusValue(check.Status))
			switch {
			case check.Status == "fail":
				overallStatus = "unhealthy"
				statusCode = http.StatusServiceUnavailable
			case check.Status == "warn" && overallStatus == "healthy":
				overallStatus = "degraded"
			}
		}

		writeJSON(w, statusCode, HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func statusValue(status string) float64 {
	switch status {
	case "pass":
		return 2
	case "warn":
		return 1
	}
	return 0
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "pass", Message: "Database not configured; signups and cache held in memory"}
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var result int
	err := h.db.QueryRow(dbCtx, "SELECT 1").Scan(&result)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database query failed"
		details := map[string]any{"error": err.Error()}
		switch {
		case dbCtx.Err() == context.DeadlineExceeded:
			message = fmt.Sprintf("Database query timed out after %s", h.timeout)
			details["remediation"] = "Check PostgreSQL performance or network latency"
		case strings.Contains(err.Error(), "connection refused"):
			message = "Database connection refused"
			details["remediation"] = "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
		case strings.Contains(err.Error(), "authentication failed"):
			message = "Database authentication failed"
			details["remediation"] = "Verify DATABASE_URL username and password"
		default:
			details["remediation"] = "Check DATABASE_URL and PostgreSQL service status"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency, Details: details}
	}

	check := CheckResult{Status: "pass", Message: "PostgreSQL connection successful", LatencyMs: latency}
	if pool, ok := h.db.(*pgxpool.Pool); ok {
		stats := pool.Stat()
		check.Details = map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		}
	}
	return check
}

// checkMigrations reads the golang-migrate bookkeeping table.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "pass", Message: "Database not configured"}
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var version int64
	var dirty bool
	err := h.db.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Failed to query migration version"
		remediation := "Verify migrations have been applied"
		if strings.Contains(err.Error(), "does not exist") {
			message = "Migrations table not found"
			remediation = "Run: parkfinder migrate up"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": remediation},
		}
	}

	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version":     version,
				"dirty":       true,
				"remediation": "Fix the failed migration, then: parkfinder migrate force <version>",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version, "dirty": false},
	}
}

// checkJobQueue counts pending River jobs. Without a database the in-process
// sweeper replaces the queue, which is fine.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "pass", Message: "Job queue not used without a database"}
	}
	if h.riverClient == nil {
		return CheckResult{Status: "warn", Message: "Job queue not running; expired cache entries are not cleaned up"}
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var activeJobs int64
	err := h.db.QueryRow(jobCtx, `SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`, []string{"available", "running"}).Scan(&activeJobs)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details: map[string]any{
				"error":       err.Error(),
				"remediation": "Run River migrations: parkfinder migrate up",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": activeJobs},
	}
}

func (h *HealthChecker) checkCache(ctx context.Context) CheckResult {
	if h.cache == nil {
		return CheckResult{Status: "pass", Message: "No shared cache configured"}
	}

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.cache.Ping(pingCtx); err != nil {
		// Geocoding still works without the cache, only slower.
		return CheckResult{
			Status:    "warn",
			Message:   "Cache unreachable",
			LatencyMs: time.Since(start).Milliseconds(),
			Details:   map[string]any{"error": err.Error(), "remediation": "Check REDIS_URL and Redis service status"},
		}
	}
	return CheckResult{Status: "pass", Message: "Cache reachable", LatencyMs: time.Since(start).Milliseconds()}
}

// APIHealth answers GET /api/health with the landing page's minimal probe.
func APIHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
}

// Healthz is the liveness probe.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz is the readiness probe.
func Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	writeJSON(w, status, healthResponse{Status: value})
}
