// Package signup records interest from visitors of the landing page.
package signup

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/sanitize"
)

var (
	// ErrDuplicate is returned when the email has already signed up.
	ErrDuplicate = errors.New("email already signed up")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid signup")
)

// Input is a signup request.
type Input struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// Signup is a stored signup.
type Signup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists signups. Create returns ErrDuplicate for a known email.
type Repository interface {
	Create(ctx context.Context, s Signup) error
}

// Notifier welcomes a new signup.
type Notifier interface {
	SendWelcome(ctx context.Context, to, name string) error
}

// notifyTimeout bounds a welcome email sent after the request has returned.
const notifyTimeout = 30 * time.Second

// Service validates and stores signups.
type Service struct {
	repo      Repository
	notifier  Notifier
	logger    zerolog.Logger
	validator *validator.Validate
	now       func() time.Time
	wg        sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sends a welcome message after each successful signup.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a signup service.
func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "signup").Logger(),
		validator: validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until pending welcome messages have been sent or given up.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Register sanitizes and validates in, then stores it under a new ULID.
func (s *Service) Register(ctx context.Context, in Input) (*Signup, error) {
	in.Name = sanitize.Line(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Name == "" || in.Email == "" {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: name and email required", ErrInvalid)
	}
	if err := s.validator.Struct(in); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	now := s.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("generate signup id: %w", err)
	}

	record := Signup{ID: id.String(), Name: in.Name, Email: in.Email, CreatedAt: now}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicate) {
			metrics.SignupsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicate
		}
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store signup: %w", err)
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("signup_id", record.ID).Msg("signup created")
	s.notify(ctx, record)
	return &record, nil
}

// notify sends the welcome message in the background. Failures are logged
// and never undo the signup.
func (s *Service) notify(ctx context.Context, record Signup) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.SendWelcome(ctx, record.Email, record.Name); err != nil {
			s.logger.Warn().Err(err).Str("signup_id", record.ID).Msg("welcome email failed")
		}
	}()
}

// describe turns validator errors into a short message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "email":
		return field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// MemoryRepository keeps signups in process. Used when no database is configured.
type MemoryRepository struct {
	mu      sync.Mutex
	byEmail map[string]Signup
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]Signup)}
}

func (r *MemoryRepository) Create(_ context.Context, s Signup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[s.Email]; ok {
		return ErrDuplicate
	}
	r.byEmail[s.Email] = s
	return nil
}

// Len returns the number of stored signups.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEmail)
}
