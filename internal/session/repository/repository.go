package repository

import (
	"context"
	"time"

	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/session/domain"
)

// Repository defines persistence for sessions. Lookup must stay a single
// indexed row read; validation sits on the request hot path.
type Repository interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Invalidate(ctx context.Context, token string) error
	InvalidateAllByUser(ctx context.Context, userID ids.UserID) error
	Heartbeat(ctx context.Context, token string, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
