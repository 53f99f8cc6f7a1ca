package domain

import (
	"errors"
	"time"

	"tenant-auth-plane/internal/platform/ids"
)

// Tenant is an isolated customer organization owning a disjoint subset of all
// business data.
type Tenant struct {
	ID        ids.TenantID
	Name      string
	OwnerID   ids.UserID
	Active    bool
	CreatedAt time.Time
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.ID.IsZero() {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.OwnerID.IsZero() {
		return errors.New("owner id is required")
	}
	return nil
}
