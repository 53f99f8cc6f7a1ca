package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tenant-auth-plane/internal/metrics"
	"tenant-auth-plane/internal/session/domain"
	"tenant-auth-plane/internal/session/service"
)

// SessionCookie is the canonical session cookie. The __Host- prefix binds it
// to the origin host over HTTPS.
const SessionCookie = "__Host-session"

// LegacySessionCookie is accepted for clients that predate the prefixed name.
const LegacySessionCookie = "session_token"

// Validator resolves a presented token into an identity.
type Validator interface {
	Validate(ctx context.Context, token string) (*service.Identity, error)
	Heartbeat(ctx context.Context, sess *domain.Session)
}

// SessionAuth extracts and validates the session token on every request. No
// token means anonymous and the chain continues. A presented token that fails
// validation also continues as anonymous, but with the typed failure recorded
// on the identity: public routes tolerate it, while RequireUser answers 401
// with the exact reason. The failure is never dropped.
func SessionAuth(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, source := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{Anonymous: true})))
				return
			}

			id, err := validator.Validate(r.Context(), token)
			if err != nil {
				var authErr *domain.AuthError
				if !errors.As(err, &authErr) {
					// Store failure, not a verdict on the token. Fail closed.
					logger.Error("session validation failed", "error", err, "path", r.URL.Path)
					writeError(w, http.StatusInternalServerError, errorBody{Error: "internal"})
					return
				}
				metrics.AuthFailures.WithLabelValues(string(authErr.Reason)).Inc()
				logger.Info("session rejected",
					"reason", authErr.Reason,
					"source", source,
					"path", r.URL.Path,
				)
				ctx := WithIdentity(r.Context(), Identity{Anonymous: true, Failure: authErr})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Best-effort activity refresh; never blocks the response on an
			// extra write.
			validator.Heartbeat(r.Context(), id.Session)

			ctx := WithIdentity(r.Context(), Identity{User: id.User, Session: id.Session})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken takes the first token found, in fixed priority order:
// Authorization: Session, Authorization: Bearer, the __Host-session cookie,
// then the legacy cookie name.
func extractToken(r *http.Request) (token, source string) {
	if h := r.Header.Get("Authorization"); h != "" {
		if v, ok := schemeToken(h, "Session"); ok {
			return v, "header_session"
		}
		if v, ok := schemeToken(h, "Bearer"); ok {
			return v, "header_bearer"
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, "cookie"
	}
	if c, err := r.Cookie(LegacySessionCookie); err == nil && c.Value != "" {
		return c.Value, "cookie_legacy"
	}
	return "", ""
}

func schemeToken(header, scheme string) (string, bool) {
	if len(header) <= len(scheme)+1 {
		return "", false
	}
	if !strings.EqualFold(header[:len(scheme)], scheme) || header[len(scheme)] != ' ' {
		return "", false
	}
	v := strings.TrimSpace(header[len(scheme)+1:])
	return v, v != ""
}
