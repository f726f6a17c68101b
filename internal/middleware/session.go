package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionCookie identifies the anonymous cart session. It is assigned on
// first contact and survives login, so a cart built while browsing
// anonymously is still there at checkout.
const SessionCookie = "astrobite_session"

const sessionCookieMaxAge = 7 * 24 * 60 * 60 // matches the cart TTL

// SessionMiddleware ensures every request carries a cart session ID,
// minting a cookie when the client has none.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			sessionID = c.Value
		} else {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
	})
}
