// Package domain holds the session entity and the authentication failure taxonomy.
package domain

import (
	"fmt"
	"time"

	"tenant-auth-plane/internal/platform/ids"
)

// SessionType distinguishes how a session is used. It has no effect on
// validation; it is recorded for auditing and client inventory.
type SessionType string

const (
	SessionTypeWeb SessionType = "web"
	SessionTypeAPI SessionType = "api"
)

// Session is a server-held proof that a user has authenticated.
//
// Sessions are mutated only by creation, heartbeat, explicit invalidation, and
// the expiry sweep; nothing else writes session fields.
type Session struct {
	// Token is the opaque high-entropy identifier presented by clients.
	Token  string
	UserID ids.UserID
	// TenantID is the owning tenant resolved at creation; zero when the user
	// had no resolvable tenant at login time.
	TenantID       ids.TenantID
	Type           SessionType
	Active         bool
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	// ClientMetadata is opaque to the auth plane (stored and returned verbatim).
	ClientMetadata []byte
}

// Expired reports whether the session is expired at now. The boundary rule is
// "expired at, not before, expires_at": a session whose expiry equals now is
// already expired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// InvalidReason says why a presented token failed validation.
type InvalidReason string

const (
	ReasonNotFound     InvalidReason = "not_found"
	ReasonExpired      InvalidReason = "expired"
	ReasonInactive     InvalidReason = "inactive"
	ReasonUserDisabled InvalidReason = "user_disabled"
)

// AuthError is the typed authentication failure. A presented-but-invalid token
// always surfaces as an AuthError; it is never downgraded to anonymous.
type AuthError struct {
	Reason InvalidReason
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}
