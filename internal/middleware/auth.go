package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage"
	"github.com/astrobite/storefront/pkg/logger"
)

// TokenCookie is the cookie carrying the session token for browser
// clients; API clients use the Authorization header instead.
const TokenCookie = "astrobite_token"

// Authenticator validates bearer tokens against both the JWT signature and
// the server-side session table, so logout revokes tokens immediately.
type Authenticator struct {
	issuer *auth.Issuer
	users  storage.UserStore
	log    *logger.Logger
}

func NewAuthenticator(issuer *auth.Issuer, users storage.UserStore, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	return &Authenticator{issuer: issuer, users: users, log: log}
}

// Required rejects the request with 401 unless a valid token resolves to a
// live session.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := a.resolve(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// AdminOnly rejects the request unless the authenticated user has the
// admin role. Non-admins get 403.
func (a *Authenticator) AdminOnly(next http.Handler) http.Handler {
	return a.Required(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		if u.Role != user.RoleAdmin {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *Authenticator) resolve(r *http.Request) (user.User, bool) {
	token := extractToken(r)
	if token == "" {
		return user.User{}, false
	}

	claims, err := a.issuer.Validate(token)
	if err != nil {
		return user.User{}, false
	}

	sess, err := a.users.GetSessionByTokenHash(r.Context(), auth.HashToken(token))
	if err != nil || time.Now().After(sess.ExpiresAt) {
		return user.User{}, false
	}
	if sess.UserID != claims.UserID {
		a.log.WithField("session_id", sess.ID).Warn("session user mismatch")
		return user.User{}, false
	}

	u, err := a.users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		return user.User{}, false
	}
	return u, true
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
