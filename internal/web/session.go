package web

import (
	"context"
	"net/http"
	"time"

	"github.com/sparklabs/sparksearch/internal/core"
)

// sessionCookie is the name of the login session cookie.
const sessionCookie = "sparksearch_session"

type contextKey string

const sessionContextKey contextKey = "session"

// requireSession rejects requests without a valid session cookie and stores
// the resolved session on the request context for handlers.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			respondError(w, r, core.ErrNotLoggedIn)
			return
		}

		sess, ok := s.service.Session(cookie.Value)
		if !ok {
			clearSessionCookie(w)
			respondError(w, r, core.ErrNotLoggedIn)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the session stored by requireSession.
func sessionFromContext(ctx context.Context) *core.Session {
	sess, _ := ctx.Value(sessionContextKey).(*core.Session)
	return sess
}

// setSessionCookie writes the session cookie for a fresh login.
func setSessionCookie(w http.ResponseWriter, sess *core.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
