// Package service implements session creation, validation, heartbeat, and
// invalidation on top of the session repository.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tenant-auth-plane/internal/audit"
	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/security"
	"tenant-auth-plane/internal/session/domain"
	tenantdomain "tenant-auth-plane/internal/tenant/domain"
	userdomain "tenant-auth-plane/internal/user/domain"
)

// SessionRepo is the minimal session repository needed by the service.
type SessionRepo interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Invalidate(ctx context.Context, token string) error
	InvalidateAllByUser(ctx context.Context, userID ids.UserID) error
	Heartbeat(ctx context.Context, token string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserRepo is the minimal user repository needed by the service.
type UserRepo interface {
	GetByID(ctx context.Context, id ids.UserID) (*userdomain.User, error)
}

// TenantRepo is the minimal tenant repository needed by the service.
type TenantRepo interface {
	GetByOwner(ctx context.Context, ownerID ids.UserID) (*tenantdomain.Tenant, error)
}

// Identity is the outcome of a successful validation: the session and the user
// it belongs to.
type Identity struct {
	User    *userdomain.User
	Session *domain.Session
}

// Service is the session store and validator.
type Service struct {
	sessions SessionRepo
	users    UserRepo
	tenants  TenantRepo
	auditor  audit.Recorder
	logger   *slog.Logger

	ttl            time.Duration
	heartbeatEvery time.Duration

	now func() time.Time
}

// New returns a session service. ttl is the default session lifetime;
// heartbeatEvery is how stale last_activity_at may get before Heartbeat
// persists a refresh.
func New(sessions SessionRepo, users UserRepo, tenants TenantRepo, auditor audit.Recorder, logger *slog.Logger, ttl, heartbeatEvery time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		sessions:       sessions,
		users:          users,
		tenants:        tenants,
		auditor:        auditor,
		logger:         logger,
		ttl:            ttl,
		heartbeatEvery: heartbeatEvery,
		now:            time.Now,
	}
}

// Create mints a session for the user. The owning tenant is resolved and
// stored if determinable; a user without a tenant still gets a session (tenant
// resolution at request time will end Unresolved).
func (s *Service) Create(ctx context.Context, userID ids.UserID, sessionType domain.SessionType, clientMetadata []byte) (*domain.Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if user == nil {
		return nil, &domain.AuthError{Reason: domain.ReasonNotFound}
	}
	if user.Disabled() {
		return nil, &domain.AuthError{Reason: domain.ReasonUserDisabled}
	}

	token, err := security.NewSessionToken()
	if err != nil {
		return nil, err
	}

	var tenantID ids.TenantID
	tenant, err := s.tenants.GetByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: resolve tenant: %w", err)
	}
	if tenant != nil {
		tenantID = tenant.ID
	} else {
		s.logger.Info("session created without tenant", "user_id", userID)
	}

	if sessionType == "" {
		sessionType = domain.SessionTypeWeb
	}
	now := s.now().UTC()
	sess := &domain.Session{
		Token:          token,
		UserID:         userID,
		TenantID:       tenantID,
		Type:           sessionType,
		Active:         true,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.ttl),
		ClientMetadata: clientMetadata,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	s.auditor.Record(ctx, audit.Event{
		TenantID: tenantID.String(),
		UserID:   userID.String(),
		Action:   "session.created",
		Resource: "session",
		Metadata: string(sessionType),
	})
	return sess, nil
}

// Get returns the session for token, or nil if not found. No validity checks.
func (s *Service) Get(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.GetByToken(ctx, token)
}

// Validate resolves and validates a presented token. On failure it returns a
// typed *domain.AuthError whose reason is exactly one of not_found, expired,
// inactive, user_disabled. The lookup is a single indexed read plus one user
// read; invalidation is visible immediately because validation always reads
// the current row.
func (s *Service) Validate(ctx context.Context, token string) (*Identity, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if sess == nil {
		return nil, &domain.AuthError{Reason: domain.ReasonNotFound}
	}
	if sess.Expired(s.now().UTC()) {
		return nil, &domain.AuthError{Reason: domain.ReasonExpired}
	}
	if !sess.Active {
		return nil, &domain.AuthError{Reason: domain.ReasonInactive}
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if user == nil || user.Disabled() {
		return nil, &domain.AuthError{Reason: domain.ReasonUserDisabled}
	}
	return &Identity{User: user, Session: sess}, nil
}

// Heartbeat refreshes last_activity_at when it has gotten stale. Best-effort:
// persistence failures are logged and never surface to the request.
func (s *Service) Heartbeat(ctx context.Context, sess *domain.Session) {
	now := s.now().UTC()
	if now.Sub(sess.LastActivityAt) < s.heartbeatEvery {
		return
	}
	if err := s.sessions.Heartbeat(ctx, sess.Token, now); err != nil {
		s.logger.Warn("session heartbeat failed", "error", err)
	}
}

// Invalidate deactivates the session. Idempotent: invalidating twice is the
// same end state with no error.
func (s *Service) Invalidate(ctx context.Context, sess *domain.Session) error {
	if err := s.sessions.Invalidate(ctx, sess.Token); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	metrics.SessionsInvalidated.Inc()
	s.auditor.Record(ctx, audit.Event{
		TenantID: sess.TenantID.String(),
		UserID:   sess.UserID.String(),
		Action:   "session.invalidated",
		Resource: "session",
	})
	return nil
}

// InvalidateAll deactivates every session of the user.
func (s *Service) InvalidateAll(ctx context.Context, userID ids.UserID) error {
	if err := s.sessions.InvalidateAllByUser(ctx, userID); err != nil {
		return fmt.Errorf("invalidate all sessions: %w", err)
	}
	metrics.SessionsInvalidated.Inc()
	s.auditor.Record(ctx, audit.Event{
		UserID:   userID.String(),
		Action:   "session.invalidated_all",
		Resource: "session",
	})
	return nil
}

// RunSweeper garbage-collects expired session rows on a ticker until ctx is
// canceled. Runs out of band; requests never wait on it.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
			if err != nil {
				s.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				metrics.SessionsSwept.Add(float64(n))
				s.logger.Info("swept expired sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
