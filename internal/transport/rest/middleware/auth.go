package middleware

import (
	"context"
	"net/http"
	"strings"

	"sulamboard/internal/service"
	"sulamboard/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionContext is the resolved caller attached to authenticated requests.
type SessionContext struct {
	SessionID string
	Data      *session.Data
}

// AuthMiddleware resolves dashboard session tokens.
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// Require validates the session token from the Authorization header (Bearer
// or raw) or the token query param and attaches the session to the request
// context.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		sessionID, data, err := m.authSvc.Resolve(r.Context(), token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, &SessionContext{SessionID: sessionID, Data: data})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts the resolved session from context.
func GetSession(ctx context.Context) *SessionContext {
	if v := ctx.Value(sessionKey); v != nil {
		return v.(*SessionContext)
	}
	return nil
}

// ExtractToken pulls the session token from a request: a Bearer header, a
// bare Authorization value, or the token query param.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return auth
	}
	return r.URL.Query().Get("token")
}
