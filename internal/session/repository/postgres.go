package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/session/domain"
)

// PostgresRepository persists sessions. The sessions table carries no row
// isolation policy: it is consulted before a tenant exists for the request, so
// every operation runs on a short-lived maintenance lease.
type PostgresRepository struct {
	pool *pool.Pool
}

// NewPostgresRepository returns a session repository backed by the given pool.
func NewPostgresRepository(p *pool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: p}
}

// GetByToken returns the session for token, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	row := lease.QueryRow(ctx, `
		SELECT token, user_id, tenant_id, session_type, is_active,
		       created_at, last_activity_at, expires_at, client_metadata
		FROM sessions
		WHERE token = $1`, token)

	var s domain.Session
	err = row.Scan(&s.Token, &s.UserID, &s.TenantID, &s.Type, &s.Active,
		&s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt, &s.ClientMetadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Create persists the session. The session must have Token set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `
		INSERT INTO sessions (token, user_id, tenant_id, session_type, is_active,
		                      created_at, last_activity_at, expires_at, client_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.Token, s.UserID, s.TenantID, s.Type, s.Active,
		s.CreatedAt, s.LastActivityAt, s.ExpiresAt, s.ClientMetadata)
	return err
}

// Invalidate sets is_active=false for the session. Invalidating an already
// inactive or missing session is not an error.
func (r *PostgresRepository) Invalidate(ctx context.Context, token string) error {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `UPDATE sessions SET is_active = false WHERE token = $1`, token)
	return err
}

// InvalidateAllByUser sets is_active=false on every session of the user.
func (r *PostgresRepository) InvalidateAllByUser(ctx context.Context, userID ids.UserID) error {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `UPDATE sessions SET is_active = false WHERE user_id = $1`, userID)
	return err
}

// Heartbeat raises last_activity_at to at. GREATEST makes concurrent
// heartbeats from multiple devices idempotent and monotonic: the later
// timestamp always wins regardless of arrival order.
func (r *PostgresRepository) Heartbeat(ctx context.Context, token string, at time.Time) error {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `
		UPDATE sessions
		SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE token = $1`, token, at)
	return err
}

// DeleteExpired removes sessions whose expiry has passed and returns how many.
// Validation never depends on this: an expired row that is still present simply
// fails validation.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return 0, err
	}
	defer lease.Release()

	tag, err := lease.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
