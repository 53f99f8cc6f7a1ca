package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/platform/ids"
	tenantdomain "tenant-auth-plane/internal/tenant/domain"
)

// TenantLookup resolves ownership when the session carries no tenant.
type TenantLookup interface {
	GetByOwner(ctx context.Context, ownerID ids.UserID) (*tenantdomain.Tenant, error)
}

// Acquirer hands out tenant-bound connection leases.
type Acquirer interface {
	AcquireTenant(ctx context.Context, tenant ids.TenantID) (*pool.Lease, error)
}

// RequireUser rejects anonymous requests. Runs after SessionAuth. When the
// request presented a token that was rejected, the response carries that
// reason rather than a generic missing-credentials error.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFrom(r.Context()); id.Anonymous {
			unauthenticated(w, id)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthenticated(w http.ResponseWriter, id Identity) {
	w.Header().Set("WWW-Authenticate", "Session")
	if id.Failure != nil {
		writeError(w, http.StatusUnauthorized, errorBody{
			Error:  "authentication_failed",
			Reason: string(id.Failure.Reason),
		})
		return
	}
	writeError(w, http.StatusUnauthorized, errorBody{Error: "authentication_required"})
}

// RequireTenant resolves the tenant for the authenticated user, binds a
// connection lease to it, and short-circuits with 403 when no tenant can be
// determined. Resolution order: the tenant recorded on the session, then
// ownership lookup. Exactly one tenant or none; never a guess.
func RequireTenant(tenants TenantLookup, db Acquirer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id.Anonymous {
				unauthenticated(w, id)
				return
			}

			tc, err := resolve(r.Context(), id, tenants)
			if err != nil {
				logger.Error("tenant resolution failed", "error", err, "user_id", id.User.ID)
				writeError(w, http.StatusInternalServerError, errorBody{Error: "internal"})
				return
			}
			if tc.State != TenantResolved {
				metrics.TenantUnresolved.Inc()
				logger.Warn("request without resolvable tenant",
					"user_id", id.User.ID,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusForbidden, errorBody{Error: "tenant_unresolved"})
				return
			}

			lease, err := db.AcquireTenant(r.Context(), tc.ID)
			if err != nil {
				if errors.Is(err, pool.ErrPoolExhausted) {
					writeError(w, http.StatusServiceUnavailable, errorBody{Error: "database_busy"})
					return
				}
				logger.Error("tenant connection acquire failed", "error", err, "tenant_id", tc.ID)
				writeError(w, http.StatusInternalServerError, errorBody{Error: "internal"})
				return
			}
			defer lease.Release()

			ctx := WithTenant(r.Context(), tc)
			ctx = WithLease(ctx, lease)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(ctx context.Context, id Identity, tenants TenantLookup) (TenantContext, error) {
	if !id.Session.TenantID.IsZero() {
		return TenantContext{State: TenantResolved, ID: id.Session.TenantID, Source: "session"}, nil
	}
	t, err := tenants.GetByOwner(ctx, id.User.ID)
	if err != nil {
		return TenantContext{}, err
	}
	if t != nil {
		return TenantContext{State: TenantResolved, ID: t.ID, Source: "ownership"}, nil
	}
	return TenantContext{State: TenantUnresolved}, nil
}
