package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/session/domain"
	tenantdomain "tenant-auth-plane/internal/tenant/domain"
	userdomain "tenant-auth-plane/internal/user/domain"
)

type stubTenantLookup struct {
	tenant *tenantdomain.Tenant
	err    error
	calls  int
}

func (s *stubTenantLookup) GetByOwner(context.Context, ids.UserID) (*tenantdomain.Tenant, error) {
	s.calls++
	return s.tenant, s.err
}

type stubAcquirer struct {
	lease *pool.Lease
	err   error
	saw   []ids.TenantID
}

func (s *stubAcquirer) AcquireTenant(_ context.Context, tenant ids.TenantID) (*pool.Lease, error) {
	s.saw = append(s.saw, tenant)
	return s.lease, s.err
}

func authedRequest(t *testing.T, sessionTenant ids.TenantID) *http.Request {
	t.Helper()
	userID, err := ids.ParseUserID(uuid.NewString())
	if err != nil {
		t.Fatalf("parse user id: %v", err)
	}
	id := Identity{
		User: &userdomain.User{ID: userID, Status: userdomain.UserStatusActive},
		Session: &domain.Session{
			Token:     "tok",
			UserID:    userID,
			TenantID:  sessionTenant,
			Active:    true,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	return req.WithContext(WithIdentity(req.Context(), id))
}

func mustTenantID(t *testing.T) ids.TenantID {
	t.Helper()
	id, err := ids.ParseTenantID(uuid.NewString())
	if err != nil {
		t.Fatalf("parse tenant id: %v", err)
	}
	return id
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	h := RequireUser(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler ran for anonymous request")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireTenantUsesSessionTenantFirst(t *testing.T) {
	tenantID := mustTenantID(t)
	lookup := &stubTenantLookup{}
	acq := &stubAcquirer{lease: &pool.Lease{}}

	var got TenantContext
	h := RequireTenant(lookup, acq, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantFrom(r.Context())
		if LeaseFrom(r.Context()) == nil {
			t.Fatal("no lease in context")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, tenantID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.State != TenantResolved || got.ID != tenantID || got.Source != "session" {
		t.Fatalf("tenant = %+v", got)
	}
	if lookup.calls != 0 {
		t.Fatalf("ownership lookup ran %d times, want 0", lookup.calls)
	}
	if len(acq.saw) != 1 || acq.saw[0] != tenantID {
		t.Fatalf("acquired for %v, want [%v]", acq.saw, tenantID)
	}
}

func TestRequireTenantFallsBackToOwnership(t *testing.T) {
	tenantID := mustTenantID(t)
	lookup := &stubTenantLookup{tenant: &tenantdomain.Tenant{ID: tenantID, Active: true}}
	acq := &stubAcquirer{lease: &pool.Lease{}}

	var got TenantContext
	h := RequireTenant(lookup, acq, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, ids.TenantID{}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.State != TenantResolved || got.ID != tenantID || got.Source != "ownership" {
		t.Fatalf("tenant = %+v", got)
	}
}

func TestRequireTenantUnresolvedIs403(t *testing.T) {
	lookup := &stubTenantLookup{} // no tenant anywhere
	acq := &stubAcquirer{lease: &pool.Lease{}}

	h := RequireTenant(lookup, acq, slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler ran without a resolved tenant")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, ids.TenantID{}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(acq.saw) != 0 {
		t.Fatal("acquired a connection for an unresolved tenant")
	}
}

func TestRequireTenantPoolExhaustedIs503(t *testing.T) {
	tenantID := mustTenantID(t)
	lookup := &stubTenantLookup{}
	acq := &stubAcquirer{err: pool.ErrPoolExhausted}

	h := RequireTenant(lookup, acq, slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler ran without a lease")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(t, tenantID))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRequireTenantAnonymousIs401(t *testing.T) {
	h := RequireTenant(&stubTenantLookup{}, &stubAcquirer{}, slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler ran for anonymous request")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
