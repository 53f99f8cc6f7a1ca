// Package server assembles the HTTP surface: routing, middleware order, and
// the exempt-path rules.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/server/handler"
	"tenant-auth-plane/internal/server/middleware"
)

// Deps are the wired components the router mounts.
type Deps struct {
	Auth      *handler.Auth
	Records   *handler.Records
	Tenant    *handler.Tenant
	Health    *handler.Health
	Validator middleware.Validator
	Tenants   middleware.TenantLookup
	DB        middleware.Acquirer
	Logger    *slog.Logger
}

// NewRouter builds the route tree. Exemption is structural: probe, metrics,
// and login routes are mounted outside the auth and tenant middleware, so a
// path is exempt only if it is wired that way here.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(d.Logger))

	// Unauthenticated surface.
	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Session-aware surface: token validated when presented, tenant not
	// required.
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(d.Validator, d.Logger))

		r.Post("/auth/login", d.Auth.Login)
		r.Get("/auth/whoami", d.Auth.Whoami)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/auth/logout", d.Auth.Logout)
			r.Post("/auth/logout_all", d.Auth.LogoutAll)
		})

		// Protected surface: authenticated user with exactly one resolved
		// tenant; every handler below runs on a tenant-bound connection.
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Use(middleware.RequireTenant(d.Tenants, d.DB, d.Logger))

			r.Get("/tenant", d.Tenant.Current)
			r.Get("/records", d.Records.List)
			r.Post("/records", d.Records.Create)
		})
	})

	return r
}
