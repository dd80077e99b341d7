package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/signup"
)

const uniqueViolation = "23505"

// SignupRepository stores signups.
type SignupRepository struct {
	pool *pgxpool.Pool
}

var _ signup.Repository = (*SignupRepository)(nil)

// NewSignupRepository creates a new signup repository.
func NewSignupRepository(pool *pgxpool.Pool) *SignupRepository {
	return &SignupRepository{pool: pool}
}

// Create inserts s. A second signup for the same email returns signup.ErrDuplicate.
func (r *SignupRepository) Create(ctx context.Context, s signup.Signup) (err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("signup_create", start, err) }()

	const query = `INSERT INTO signups (id, name, email, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.Email, s.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return signup.ErrDuplicate
		}
		return fmt.Errorf("insert signup: %w", err)
	}
	return nil
}

// Count returns the number of stored signups.
func (r *SignupRepository) Count(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("signup_count", start, err) }()

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM signups`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signups: %w", err)
	}
	return n, nil
}
