package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewService(config.EmailConfig{
		Enabled:      true,
		From:         "hello@parkfinder.dev",
		ResendAPIKey: "test-api-key",
	}, "https://parkfinder.dev", zerolog.Nop())
	require.NoError(t, err)

	baseURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	svc.resendClient.BaseURL = baseURL
	return svc
}

func TestSendWelcome(t *testing.T) {
	var got resend.SendEmailRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-123"})
	})

	err := svc.SendWelcome(context.Background(), "ada@example.com", "Ada <b>L</b>")
	require.NoError(t, err)

	assert.Equal(t, "hello@parkfinder.dev", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, welcomeSubject, got.Subject)
	assert.Equal(t, []resend.Tag{{Name: "template", Value: "welcome"}}, got.Tags)
	assert.Contains(t, got.Html, "https://parkfinder.dev")
	assert.Contains(t, got.Html, "Ada &lt;b&gt;L&lt;/b&gt;", "names are HTML escaped")
}

func TestSendWelcome_RateLimited(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "100")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Rate limit exceeded"})
	})

	err := svc.SendWelcome(context.Background(), "ada@example.com", "Ada")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSendWelcome_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid request", "name": "validation_error"})
	})

	err := svc.SendWelcome(context.Background(), "ada@example.com", "Ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend API error")
}

func TestSendWelcome_CancelledContext(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called with a cancelled context")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SendWelcome(ctx, "ada@example.com", "Ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestSendWelcome_Disabled(t *testing.T) {
	svc, err := NewService(config.EmailConfig{}, "https://parkfinder.dev", zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, svc.SendWelcome(context.Background(), "ada@example.com", "Ada"))
	assert.Error(t, svc.SendWelcome(context.Background(), "not-an-email", "Ada"))
}

func TestNewService_InvalidSender(t *testing.T) {
	_, err := NewService(config.EmailConfig{Enabled: true, From: "nobody", ResendAPIKey: "k"}, "", zerolog.Nop())
	assert.Error(t, err)
}

func TestSendViaResend_NilClient(t *testing.T) {
	svc := &Service{logger: zerolog.Nop()}
	err := svc.deliver(context.Background(), message{to: "ada@example.com", subject: "s", html: "<p>b</p>", template: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestValidateEmailAddress(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"user@example.com", false},
		{"Ada Lovelace <ada@example.com>", false},
		{"", true},
		{"no-at-sign", true},
		{"user@example.com\r\nBcc: victim@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := validateEmailAddress(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
