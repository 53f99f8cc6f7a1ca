// Package repository persists tenant-scoped records. Unlike the auth-plane
// repositories, it runs on the request's tenant lease: queries deliberately
// carry no tenant filter, because visibility is the database's responsibility
// via the row isolation policies. An application-level WHERE here would only
// mask policy bugs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/records/domain"
)

// PostgresRepository reads and writes records through a leased connection.
type PostgresRepository struct {
	q pool.Querier
}

// NewPostgresRepository returns a record repository over the given lease (or
// any Querier).
func NewPostgresRepository(q pool.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// List returns all records visible on the connection, newest first. With a
// tenant lease that is exactly the tenant's records; with a maintenance lease
// it is every tenant's records.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Record, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, tenant_id, name, payload, created_at
		FROM records
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Name, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Create persists the record. The row isolation policy's WITH CHECK clause
// rejects the insert if the record's tenant does not match the connection's
// current tenant.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO records (id, tenant_id, name, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.TenantID, rec.Name, rec.Payload, rec.CreatedAt)
	return err
}

// CountForTenant is a maintenance-side helper for ops tooling; it does filter
// explicitly because maintenance leases see every tenant.
func (r *PostgresRepository) CountForTenant(ctx context.Context, tenantID ids.TenantID) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM records WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}
