package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/server/middleware"
	"tenant-auth-plane/internal/tenant/domain"
)

// TenantReader loads tenant metadata.
type TenantReader interface {
	GetByID(ctx context.Context, id ids.TenantID) (*domain.Tenant, error)
}

// Tenant serves the current-tenant introspection endpoint.
type Tenant struct {
	tenants TenantReader
	logger  *slog.Logger
}

func NewTenant(tenants TenantReader, logger *slog.Logger) *Tenant {
	return &Tenant{tenants: tenants, logger: logger}
}

type tenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"resolution_source"`
}

// Current returns the tenant bound to this request.
func (h *Tenant) Current(w http.ResponseWriter, r *http.Request) {
	tc := middleware.TenantFrom(r.Context())
	if tc.State != middleware.TenantResolved {
		writeJSONError(w, http.StatusForbidden, "tenant_unresolved", "")
		return
	}
	t, err := h.tenants.GetByID(r.Context(), tc.ID)
	if err != nil {
		h.logger.Error("load tenant failed", "error", err, "tenant_id", tc.ID)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	if t == nil {
		writeJSONError(w, http.StatusNotFound, "tenant_not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, tenantResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		OwnerID:   t.OwnerID.String(),
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
		Source:    tc.Source,
	})
}
