package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow scans fixed values, or returns err.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *bool:
			*p = r.values[i].(bool)
		}
	}
	return nil
}

// fakeDB answers by matching a fragment of the SQL text.
type fakeDB map[string]fakeRow

func (db fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	for fragment, row := range db {
		if strings.Contains(sql, fragment) {
			return row
		}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func healthyDB() fakeDB {
	return fakeDB{
		"SELECT 1":          {values: []any{1}},
		"schema_migrations": {values: []any{int64(2), false}},
		"river_job":         {values: []any{int64(0)}},
	}
}

func runHealth(t *testing.T, h *HealthChecker) (int, HealthCheck) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health().ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp HealthCheck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestHealthCheck_NoBackendsConfigured(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil, "0.1.0", "test-commit")

	code, resp := runHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "0.1.0", resp.Version)
	assert.Equal(t, "test-commit", resp.GitCommit)
	assert.NotEmpty(t, resp.Timestamp)
	for _, name := range []string{"database", "migrations", "job_queue", "cache"} {
		check, ok := resp.Checks[name]
		require.True(t, ok, "%s check should be present", name)
		assert.Equal(t, "pass", check.Status, name)
	}
}

func TestHealthCheck_DatabaseWithoutJobQueueIsDegraded(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil, "0.1.0", "c")
	h.db = healthyDB()

	code, resp := runHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "pass", resp.Checks["database"].Status)
	assert.Equal(t, "pass", resp.Checks["migrations"].Status)
	assert.Contains(t, resp.Checks["migrations"].Message, "version 2")
	assert.Equal(t, "warn", resp.Checks["job_queue"].Status)
}

func TestHealthCheck_DatabaseFailure(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil, "0.1.0", "c")
	h.db = fakeDB{
		"SELECT 1":          {err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")},
		"schema_migrations": {err: errors.New("connection refused")},
	}

	code, resp := runHealth(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	db := resp.Checks["database"]
	assert.Equal(t, "fail", db.Status)
	assert.Equal(t, "Database connection refused", db.Message)
	assert.NotEmpty(t, db.Details["remediation"])
}

func TestHealthCheck_Migrations(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		status  string
		message string
	}{
		{name: "clean", row: fakeRow{values: []any{int64(2), false}}, status: "pass", message: "version 2"},
		{name: "dirty", row: fakeRow{values: []any{int64(2), true}}, status: "fail", message: "dirty"},
		{name: "missing table", row: fakeRow{err: errors.New(`relation "schema_migrations" does not exist`)}, status: "fail", message: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(nil, nil, nil, "v", "c")
			h.db = fakeDB{"schema_migrations": tt.row}

			got := h.checkMigrations(context.Background())
			assert.Equal(t, tt.status, got.Status)
			assert.Contains(t, got.Message, tt.message)
		})
	}
}

func TestHealthCheck_CacheUnreachableIsDegraded(t *testing.T) {
	h := NewHealthChecker(nil, nil, fakePinger{err: errors.New("redis down")}, "v", "c")

	code, resp := runHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "warn", resp.Checks["cache"].Status)
	assert.Equal(t, "redis down", resp.Checks["cache"].Details["error"])
}

func TestHealthCheck_CacheReachable(t *testing.T) {
	h := NewHealthChecker(nil, nil, fakePinger{}, "v", "c")
	got := h.checkCache(context.Background())
	assert.Equal(t, "pass", got.Status)
}

func TestHealthCheck_ShuttingDown(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil, "v", "c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.Health().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "shutting_down")
}

func TestStatusValue(t *testing.T) {
	assert.Equal(t, 2.0, statusValue("pass"))
	assert.Equal(t, 1.0, statusValue("warn"))
	assert.Equal(t, 0.0, statusValue("fail"))
}

func TestAPIHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	APIHealth().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	_, err := time.Parse(time.RFC3339, body["time"])
	assert.NoError(t, err)
}

func TestLegacyHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLegacyReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	Readyz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}
