package web

import (
	"net/http"

	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/logging"
)

// SessionCookieName identifies the browser's session.
const SessionCookieName = "csvinsight_session"

// lookupSession resolves the session cookie to a live session and stores it
// in the request context. A missing or expired cookie leaves the context
// without a session; read-only handlers fall back to the initial state.
func (s *Server) lookupSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookieName)
		if err == nil && c.Value != "" {
			if sess, err := s.service.Get(c.Value); err == nil {
				r = r.WithContext(core.ContextWithSession(r.Context(), sess))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession makes sure a mutating request has a session, creating one
// and setting the cookie when lookupSession found none. Sessions are only
// created here, so clients that never act cannot grow the store.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := core.SessionFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		sess, _, err := s.service.GetOrCreate("")
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}

		logging.ForSession(r.Context(), sess.ID()).Debug("session created")
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(core.ContextWithSession(r.Context(), sess)))
	})
}

// sessionFrom returns the session stored by lookupSession or
// requireSession, if any.
func sessionFrom(r *http.Request) (*core.Session, bool) {
	return core.SessionFromContext(r.Context())
}

// mustSession returns the session for handlers mounted behind requireSession.
func mustSession(r *http.Request) *core.Session {
	sess, ok := sessionFrom(r)
	if !ok {
		panic("web: handler mounted without requireSession")
	}
	return sess
}

// snapshot returns the request's session ID and state, or the initial state
// when the request carries no session.
func (s *Server) snapshot(r *http.Request) (string, core.SessionState) {
	if sess, ok := sessionFrom(r); ok {
		return sess.ID(), sess.Snapshot()
	}
	return "", s.service.InitialState()
}
