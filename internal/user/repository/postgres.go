package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/user/domain"
)

// PostgresRepository persists users. The users table is not tenant-scoped;
// lookups happen during authentication, before a tenant is resolved, so all
// operations run on maintenance leases.
type PostgresRepository struct {
	pool *pool.Pool
}

// NewPostgresRepository returns a user repository backed by the given pool.
func NewPostgresRepository(p *pool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: p}
}

// GetByID returns the user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id ids.UserID) (*domain.User, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	return scanUser(lease.QueryRow(ctx, `
		SELECT id, email, status, created_at FROM users WHERE id = $1`, id))
}

// GetByEmail returns the user for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	return scanUser(lease.QueryRow(ctx, `
		SELECT id, email, status, created_at FROM users WHERE email = $1`, email))
}

// Create persists the user.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `
		INSERT INTO users (id, email, status, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.Status, u.CreatedAt)
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
