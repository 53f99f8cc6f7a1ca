package audit

import (
	"context"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/db/pool"
)

// PostgresSink persists audit events into the audit_events table. The table is
// a system table (not tenant-scoped): events exist precisely when something
// went wrong around tenancy, so writes run on maintenance leases.
type PostgresSink struct {
	pool *pool.Pool
}

// NewPostgresSink returns a sink persisting into audit_events.
func NewPostgresSink(p *pool.Pool) *PostgresSink {
	return &PostgresSink{pool: p}
}

// Emit inserts one audit row.
func (s *PostgresSink) Emit(ctx context.Context, e Event) error {
	lease, err := s.pool.AcquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	var tenantID, userID any
	if e.TenantID != "" && e.TenantID != SentinelTenant {
		tenantID = e.TenantID
	}
	if e.UserID != "" {
		userID = e.UserID
	}
	_, err = lease.Exec(ctx, `
		INSERT INTO audit_events (id, tenant_id, user_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), tenantID, userID, e.Action, e.Resource, e.Metadata, e.At)
	return err
}
