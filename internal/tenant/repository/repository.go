package repository

import (
	"context"

	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id ids.TenantID) (*domain.Tenant, error)
	// GetByOwner returns the active tenant owned by the user, or nil when the
	// user owns none. Used as the second step of tenant resolution.
	GetByOwner(ctx context.Context, ownerID ids.UserID) (*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
}
