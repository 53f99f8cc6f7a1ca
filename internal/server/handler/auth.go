// Package handler holds the HTTP handlers for the auth plane.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tenant-auth-plane/internal/platform/ids"
	"tenant-auth-plane/internal/security"
	"tenant-auth-plane/internal/server/middleware"
	"tenant-auth-plane/internal/session/domain"
)

// SessionManager is what the auth handlers need from the session service.
type SessionManager interface {
	Create(ctx context.Context, userID ids.UserID, sessionType domain.SessionType, clientMetadata []byte) (*domain.Session, error)
	Invalidate(ctx context.Context, sess *domain.Session) error
	InvalidateAll(ctx context.Context, userID ids.UserID) error
}

// AssertionVerifier verifies identity-provider login assertions.
type AssertionVerifier interface {
	Verify(assertion string) (*security.Identity, error)
}

// Auth serves login, logout, and identity introspection.
type Auth struct {
	sessions     SessionManager
	verifier     AssertionVerifier
	logger       *slog.Logger
	cookieSecure bool
}

func NewAuth(sessions SessionManager, verifier AssertionVerifier, logger *slog.Logger, cookieSecure bool) *Auth {
	return &Auth{sessions: sessions, verifier: verifier, logger: logger, cookieSecure: cookieSecure}
}

type loginRequest struct {
	Assertion   string `json:"assertion"`
	SessionType string `json:"session_type,omitempty"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges a verified identity-provider assertion for an opaque
// session token, returned both as JSON and as the session cookie.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Assertion == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	identity, err := h.verifier.Verify(req.Assertion)
	if err != nil {
		h.logger.Info("login assertion rejected", "error", err)
		writeJSONError(w, http.StatusUnauthorized, "invalid_assertion", "")
		return
	}

	sess, err := h.sessions.Create(r.Context(), identity.UserID, domain.SessionType(req.SessionType), nil)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			writeJSONError(w, http.StatusForbidden, "login_denied", string(authErr.Reason))
			return
		}
		h.logger.Error("session create failed", "error", err, "user_id", identity.UserID)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}

	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

// Logout invalidates the presented session and clears the cookie.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if id.Anonymous {
		writeJSONError(w, http.StatusUnauthorized, "authentication_required", "")
		return
	}
	if err := h.sessions.Invalidate(r.Context(), id.Session); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll invalidates every session of the authenticated user.
func (h *Auth) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if id.Anonymous {
		writeJSONError(w, http.StatusUnauthorized, "authentication_required", "")
		return
	}
	if err := h.sessions.InvalidateAll(r.Context(), id.User.ID); err != nil {
		h.logger.Error("logout-all failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Whoami reports the authenticated identity, or anonymous.
func (h *Auth) Whoami(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFrom(r.Context())
	if id.Anonymous {
		writeJSON(w, http.StatusOK, map[string]any{"anonymous": true})
		return
	}
	resp := map[string]any{
		"anonymous": false,
		"user_id":   id.User.ID.String(),
		"email":     id.User.Email,
		"session":   sessionView(id.Session),
	}
	writeJSON(w, http.StatusOK, resp)
}

func sessionView(s *domain.Session) sessionResponse {
	resp := sessionResponse{
		Token:     s.Token,
		UserID:    s.UserID.String(),
		Type:      string(s.Type),
		ExpiresAt: s.ExpiresAt,
	}
	if !s.TenantID.IsZero() {
		resp.TenantID = s.TenantID.String()
	}
	return resp
}

func (h *Auth) setSessionCookie(w http.ResponseWriter, s *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Auth) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
