package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/tenant/domain"
)

// PostgresRepository persists tenants. The tenants registry itself is not
// tenant-scoped (it is what tenant resolution reads), so operations run on
// maintenance leases.
type PostgresRepository struct {
	pool *pool.Pool
}

// NewPostgresRepository returns a tenant repository backed by the given pool.
func NewPostgresRepository(p *pool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: p}
}

// GetByID returns the tenant for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id ids.TenantID) (*domain.Tenant, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	return scanTenant(lease.QueryRow(ctx, `
		SELECT id, name, owner_id, active, created_at FROM tenants WHERE id = $1`, id))
}

// GetByOwner returns the active tenant owned by ownerID, or nil when the user
// owns none. A unique index on owner_id guarantees at most one row.
func (r *PostgresRepository) GetByOwner(ctx context.Context, ownerID ids.UserID) (*domain.Tenant, error) {
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	return scanTenant(lease.QueryRow(ctx, `
		SELECT id, name, owner_id, active, created_at
		FROM tenants
		WHERE owner_id = $1 AND active`, ownerID))
}

// Create persists the tenant.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	lease, err := r.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	_, err = lease.Exec(ctx, `
		INSERT INTO tenants (id, name, owner_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Name, t.OwnerID, t.Active, t.CreatedAt)
	return err
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
