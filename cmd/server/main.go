package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenant-auth-plane/internal/audit"
	"tenant-auth-plane/internal/config"
	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/security"
	"tenant-auth-plane/internal/server"
	"tenant-auth-plane/internal/server/handler"
	sessionrepo "tenant-auth-plane/internal/session/repository"
	sessionservice "tenant-auth-plane/internal/session/service"
	tenantrepo "tenant-auth-plane/internal/tenant/repository"
	userrepo "tenant-auth-plane/internal/user/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	metrics.Init()

	publicKey, err := security.ParsePublicKey(cfg.IDPPublicKey)
	if err != nil {
		logger.Error("identity provider key invalid", "error", err)
		os.Exit(1)
	}
	verifier := security.NewAssertionVerifier(publicKey, cfg.IDPIssuer, cfg.IDPAudience)

	db := pool.New(pool.Config{
		DSN:            cfg.DatabaseURL,
		MaxConns:       cfg.PoolMaxConns,
		IdleTTL:        cfg.PoolIdleTTLDuration(),
		SweepInterval:  cfg.PoolSweepIntervalDuration(),
		AcquireRetries: cfg.PoolAcquireRetries,
	}, logger)
	defer db.Close()

	auditor := audit.NewDispatcher(audit.NewPostgresSink(db), cfg.AuditBufferSize, logger)
	defer auditor.Close()

	sessions := sessionrepo.NewPostgresRepository(db)
	users := userrepo.NewPostgresRepository(db)
	tenants := tenantrepo.NewPostgresRepository(db)

	sessionSvc := sessionservice.New(sessions, users, tenants, auditor, logger,
		cfg.SessionTTLDuration(), cfg.HeartbeatIntervalDuration())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sessionSvc.RunSweeper(ctx, cfg.SessionSweepIntervalDuration())

	router := server.NewRouter(server.Deps{
		Auth:      handler.NewAuth(sessionSvc, verifier, logger, cfg.CookieSecure),
		Records:   handler.NewRecords(logger),
		Tenant:    handler.NewTenant(tenants, logger),
		Health:    handler.NewHealth(db),
		Validator: sessionSvc,
		Tenants:   tenants,
		DB:        db,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}
