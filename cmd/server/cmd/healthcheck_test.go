package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPerformHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		responseBody   interface{}
		expectHealthy  bool
		expectError    bool
		expectedStatus string
	}{
		{
			name:       "healthy server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "healthy",
				Checks: map[string]CheckResult{"database": {Status: "pass"}},
			},
			expectHealthy:  true,
			expectedStatus: "healthy",
		},
		{
			name:       "degraded server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "degraded",
				Checks: map[string]CheckResult{"cache": {Status: "warn"}},
			},
			expectedStatus: "degraded",
		},
		{
			name:           "unhealthy server (503)",
			statusCode:     http.StatusServiceUnavailable,
			responseBody:   HealthResponse{Status: "unhealthy"},
			expectedStatus: "unhealthy",
		},
		{
			name:         "invalid response",
			statusCode:   http.StatusOK,
			responseBody: "not json",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if str, ok := tt.responseBody.(string); ok {
					fmt.Fprint(w, str)
				} else {
					_ = json.NewEncoder(w).Encode(tt.responseBody)
				}
			}))
			defer server.Close()

			result := performHealthCheck(server.URL, 5*time.Second)

			if result.IsHealthy != tt.expectHealthy {
				t.Errorf("expected IsHealthy=%v, got %v", tt.expectHealthy, result.IsHealthy)
			}
			if tt.expectError && result.Error == "" {
				t.Error("expected error, got none")
			}
			if !tt.expectError && result.Status != tt.expectedStatus {
				t.Errorf("expected status=%s, got %s", tt.expectedStatus, result.Status)
			}
			if result.LatencyMs < 0 {
				t.Error("expected non-negative latency")
			}
		})
	}
}

func TestPerformHealthCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := performHealthCheck(server.URL, 50*time.Millisecond)

	if result.Error == "" {
		t.Error("expected timeout error, got none")
	}
	if result.IsHealthy {
		t.Error("expected unhealthy result on timeout")
	}
}

func TestHealthcheckURL(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		serverPort string
		want       string
	}{
		{name: "explicit URL", flag: "http://example.com/health", want: "http://example.com/health"},
		{name: "SERVER_PORT", serverPort: "9000", want: "http://localhost:9000/health"},
		{name: "default", want: "http://localhost:8080/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SERVER_PORT", tt.serverPort)
			if got := healthcheckURL(tt.flag); got != tt.want {
				t.Errorf("healthcheckURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
