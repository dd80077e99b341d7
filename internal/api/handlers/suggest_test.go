package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/api/middleware"
	"github.com/placxborcx/Onboarding-MainPage/internal/api/problem"
	"github.com/placxborcx/Onboarding-MainPage/internal/geocoding"
	"github.com/placxborcx/Onboarding-MainPage/internal/suggest"
	"github.com/placxborcx/Onboarding-MainPage/internal/supersede"
)

type mockSuggestService struct {
	mu      sync.Mutex
	queries []string
	fn      func(ctx context.Context, q string) ([]suggest.Suggestion, error)
}

func (m *mockSuggestService) Suggest(ctx context.Context, q string) ([]suggest.Suggestion, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, q)
	}
	return []suggest.Suggestion{{ID: "1", Label: "Lygon Street, Carlton", PrimaryText: "Lygon Street", Lat: -37.8, Lon: 144.97}}, nil
}

func (m *mockSuggestService) Attribution() string { return testAttribution }

func (m *mockSuggestService) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

func testSessions() *Sessions {
	return &Sessions{
		Coordinator: supersede.New(),
		Key:         func(r *http.Request) string { return middleware.SessionKey(r, nil) },
	}
}

func suggestRequest(q, session string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggest?q="+q, nil)
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}
	return req
}

func TestSuggest_Success(t *testing.T) {
	svc := &mockSuggestService{}
	h := NewSuggestHandler(svc, testSessions(), 0, "test")

	w := httptest.NewRecorder()
	h.Suggest(w, suggestRequest("lygon", "tab"))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, testAttribution, body["attribution"])
	require.Len(t, body["suggestions"], 1)
	first := body["suggestions"].([]any)[0].(map[string]any)
	assert.Equal(t, "Lygon Street", first["primaryText"])
	assert.Equal(t, []string{"lygon"}, svc.calls())
}

func TestSuggest_BlankQuery(t *testing.T) {
	svc := &mockSuggestService{}
	h := NewSuggestHandler(svc, nil, time.Second, "test")

	w := httptest.NewRecorder()
	h.Suggest(w, suggestRequest("+", ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":[],"attribution":"`+testAttribution+`"}`, w.Body.String())
	assert.Empty(t, svc.calls())
}

func TestSuggest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{name: "no results", err: geocoding.ErrNoResults, status: http.StatusOK},
		{name: "timeout", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout, typ: problem.TypeTimeout},
		{name: "provider", err: errors.New("503"), status: http.StatusBadGateway, typ: problem.TypeGeocodingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSuggestService{fn: func(context.Context, string) ([]suggest.Suggestion, error) {
				return nil, tt.err
			}}
			h := NewSuggestHandler(svc, nil, 0, "test")

			w := httptest.NewRecorder()
			h.Suggest(w, suggestRequest("x", ""))

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			if tt.typ != "" {
				assert.Equal(t, tt.typ, body["type"])
			} else {
				assert.Equal(t, []any{}, body["suggestions"])
			}
		})
	}
}

func TestSuggest_NewerKeystrokeSupersedesDuringDebounce(t *testing.T) {
	svc := &mockSuggestService{}
	h := NewSuggestHandler(svc, testSessions(), 500*time.Millisecond, "test")

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		w := httptest.NewRecorder()
		h.Suggest(w, suggestRequest("ly", "tab-1"))
		firstDone <- w
	}()

	// Let the first request register its ticket.
	require.Eventually(t, func() bool {
		return h.Sessions.Coordinator.Len() == 1
	}, time.Second, 5*time.Millisecond)

	immediate := NewSuggestHandler(svc, h.Sessions, 0, "test")
	second := httptest.NewRecorder()
	immediate.Suggest(second, suggestRequest("lygon", "tab-1"))

	first := <-firstDone
	assert.Equal(t, http.StatusConflict, first.Code)
	assert.Equal(t, problem.TypeSuperseded, decodeBody(t, first)["type"])
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, []string{"lygon"}, svc.calls(), "the superseded keystroke never reaches the geocoder")
}

func TestSuggest_DifferentSessionsDoNotInterfere(t *testing.T) {
	svc := &mockSuggestService{}
	h := NewSuggestHandler(svc, testSessions(), 20*time.Millisecond, "test")

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, session := range []string{"tab-a", "tab-b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.Suggest(w, suggestRequest("lygon", session))
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	assert.Len(t, svc.calls(), 2)
}
