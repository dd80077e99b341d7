// Package email sends the welcome message that follows a signup.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const welcomeSubject = "Welcome to parkfinder"

// Service renders and sends emails. When email is disabled it only logs.
type Service struct {
	config       config.EmailConfig
	siteURL      string
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// WelcomeData holds data for the welcome template.
type WelcomeData struct {
	Name        string
	SiteURL     string
	CurrentYear int
}

// NewService creates an email service. siteURL is linked from every message.
func NewService(cfg config.EmailConfig, siteURL string, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	s := &Service{
		config:    cfg,
		siteURL:   siteURL,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		s.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return s, nil
}

// SendWelcome emails a new signup.
func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().Msg("email service disabled, skipping welcome email")
		return nil
	}

	htmlBody, err := s.render("welcome.html", WelcomeData{
		Name:        name,
		SiteURL:     s.siteURL,
		CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return err
	}
	msg := message{to: to, subject: welcomeSubject, html: htmlBody, template: "welcome"}
	if err := s.deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *Service) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
