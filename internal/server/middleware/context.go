// Package middleware carries the request-scoped auth and tenant state and the
// HTTP middlewares that establish it.
package middleware

import (
	"context"
	"net/http"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/session/domain"
	userdomain "tenant-auth-plane/internal/user/domain"
)

type contextKey struct{ name string }

var (
	identityKey = &contextKey{"identity"}
	tenantKey   = &contextKey{"tenant"}
	leaseKey    = &contextKey{"lease"}
)

// Identity is the authentication outcome attached to every request that
// passed SessionAuth. Anonymous means no valid session backs the request;
// Failure is set when a token was presented and rejected, so route policy can
// surface the exact reason instead of treating the request as merely
// unauthenticated.
type Identity struct {
	Anonymous bool
	Failure   *domain.AuthError
	User      *userdomain.User
	Session   *domain.Session
}

// TenantState is the tri-state outcome of tenant resolution.
type TenantState int

const (
	// TenantNotApplicable marks requests on exempt paths where resolution
	// never ran.
	TenantNotApplicable TenantState = iota
	// TenantUnresolved marks an authenticated user with no determinable
	// tenant. Protected handlers must not run in this state.
	TenantUnresolved
	// TenantResolved carries exactly one tenant identifier.
	TenantResolved
)

func (s TenantState) String() string {
	switch s {
	case TenantUnresolved:
		return "unresolved"
	case TenantResolved:
		return "resolved"
	default:
		return "not_applicable"
	}
}

// TenantContext is the resolved tenant binding for the request.
type TenantContext struct {
	State  TenantState
	ID     ids.TenantID
	Source string // which resolution rule produced the binding
}

// WithIdentity returns ctx carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the request identity. Absent identity (a route that
// skipped SessionAuth) reads as anonymous.
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{Anonymous: true}
}

// WithTenant returns ctx carrying the tenant binding.
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// TenantFrom returns the tenant binding, defaulting to not-applicable.
func TenantFrom(ctx context.Context) TenantContext {
	if tc, ok := ctx.Value(tenantKey).(TenantContext); ok {
		return tc
	}
	return TenantContext{State: TenantNotApplicable}
}

// WithLease returns ctx carrying the request's tenant-bound connection lease.
func WithLease(ctx context.Context, l *pool.Lease) context.Context {
	return context.WithValue(ctx, leaseKey, l)
}

// LeaseFrom returns the tenant-bound lease, or nil on routes without one.
func LeaseFrom(ctx context.Context) *pool.Lease {
	l, _ := ctx.Value(leaseKey).(*pool.Lease)
	return l
}

// LeaseFromRequest is a convenience for handlers.
func LeaseFromRequest(r *http.Request) *pool.Lease {
	return LeaseFrom(r.Context())
}
