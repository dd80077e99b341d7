package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher() *Fetcher {
	f := NewFetcher("parkfinder-test/1.0", 2*time.Second, 1000)
	f.BaseDelay = time.Millisecond
	return f
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "parkfinder-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer server.Close()

	f := testFetcher()
	f.Header.Set("Authorization", "secret")

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, f.GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, "ok", out.Name)
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[1,2,3]`))
		}
	}))
	defer server.Close()

	var out []int
	require.NoError(t, testFetcher().GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, []int{1, 2, 3}, out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_MaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var out any
	err := testFetcher().GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(DefaultMaxRetries+1), calls.Load())
}

func TestGetJSON_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad where clause", http.StatusBadRequest)
	}))
	defer server.Close()

	var out any
	err := testFetcher().GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	var out any
	err := testFetcher().GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := testFetcher()
	f.BaseDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out any
	err := f.GetJSON(ctx, server.URL, &out)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetJSON_MalformedURLNotRetried(t *testing.T) {
	f := testFetcher()
	f.BaseDelay = time.Hour

	start := time.Now()
	var out any
	err := f.GetJSON(context.Background(), "http://[::1", &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create request")
	assert.NotContains(t, err.Error(), "max retries exceeded")
	assert.Less(t, time.Since(start), time.Second)
}
