// Command seed populates a development database with two tenants, their
// owners, and a handful of records, then prints a signed login assertion for
// each owner so a local IDP is not needed.
package main

import (
	"context"
	"crypto"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/config"
	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/platform/ids"
	recordsdomain "tenant-auth-plane/internal/records/domain"
	recordsrepo "tenant-auth-plane/internal/records/repository"
	"tenant-auth-plane/internal/security"
	tenantdomain "tenant-auth-plane/internal/tenant/domain"
	tenantrepo "tenant-auth-plane/internal/tenant/repository"
	userdomain "tenant-auth-plane/internal/user/domain"
	userrepo "tenant-auth-plane/internal/user/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	db := pool.New(pool.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: 2,
	}, logger)
	defer db.Close()

	if err := run(context.Background(), cfg, db, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, db *pool.Pool, logger *slog.Logger) error {
	users := userrepo.NewPostgresRepository(db)
	tenants := tenantrepo.NewPostgresRepository(db)

	var signingKey crypto.Signer
	if key := os.Getenv("IDP_PRIVATE_KEY"); key != "" {
		priv, err := security.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("parse IDP_PRIVATE_KEY: %w", err)
		}
		signingKey = priv
	}

	for i, plan := range []struct {
		email   string
		tenant  string
		records int
	}{
		{"alpha-owner@example.com", "tenant-alpha", 3},
		{"beta-owner@example.com", "tenant-beta", 2},
	} {
		userID, err := ids.ParseUserID(uuid.NewString())
		if err != nil {
			return err
		}
		u := &userdomain.User{ID: userID, Email: plan.email, Status: userdomain.UserStatusActive}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", plan.email, err)
		}

		tenantID, err := ids.ParseTenantID(uuid.NewString())
		if err != nil {
			return err
		}
		t := &tenantdomain.Tenant{ID: tenantID, Name: plan.tenant, OwnerID: userID, Active: true}
		if err := tenants.Create(ctx, t); err != nil {
			return fmt.Errorf("create tenant %s: %w", plan.tenant, err)
		}

		// Records are written on a lease bound to the new tenant so the seed
		// exercises the same write path and policies as requests do.
		lease, err := db.AcquireTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		records := recordsrepo.NewPostgresRepository(lease)
		for j := 0; j < plan.records; j++ {
			rec := &recordsdomain.Record{
				TenantID: tenantID,
				Name:     fmt.Sprintf("%s-record-%d", plan.tenant, j+1),
				Payload:  []byte(`{"seed":true}`),
			}
			if err := records.Create(ctx, rec); err != nil {
				lease.Release()
				return fmt.Errorf("create record for %s: %w", plan.tenant, err)
			}
		}
		lease.Release()

		logger.Info("seeded tenant",
			"tenant", plan.tenant,
			"tenant_id", tenantID,
			"owner", plan.email,
			"records", plan.records,
		)
		if signingKey != nil {
			assertion, err := security.SignAssertion(signingKey, cfg.IDPIssuer, cfg.IDPAudience, userID, plan.email, time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("# login assertion for %s (tenant %d)\n%s\n", plan.email, i+1, assertion)
		}
	}
	return nil
}
