package domain

import (
	"testing"
	"time"
)

func TestExpired_BoundaryIsExpired(t *testing.T) {
	now := time.Now().UTC()
	s := &Session{ExpiresAt: now}

	if !s.Expired(now) {
		t.Error("session whose expires_at equals now must be expired")
	}
	if s.Expired(now.Add(-time.Nanosecond)) {
		t.Error("session must not be expired before expires_at")
	}
	if !s.Expired(now.Add(time.Nanosecond)) {
		t.Error("session must be expired after expires_at")
	}
}

func TestAuthError_Message(t *testing.T) {
	err := &AuthError{Reason: ReasonExpired}
	if err.Error() != "authentication failed: expired" {
		t.Errorf("Error() = %q", err.Error())
	}
}
