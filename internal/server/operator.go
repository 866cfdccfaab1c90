package server

import (
	"net/http"
	"time"

	"ladder-console/internal/console"
	"ladder-console/internal/domain"
)

// OperatorCookieName carries the secret that binds the ladder session to
// the browser that logged in.
const OperatorCookieName = "console_operator"

func operatorSecret(r *http.Request) string {
	cookie, err := r.Cookie(OperatorCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setOperatorCookie(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     OperatorCookieName,
		Value:    sess.Owner,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearOperatorCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     OperatorCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireOperator lets a request through only from the browser holding the
// current session.
func (s *ConsoleServer) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.console.IsOperator(operatorSecret(r)) {
			s.respond(w, r, &domain.AuthError{Message: "You must be logged in to do that"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// snapshot hides the session from browsers that do not own it.
func (s *ConsoleServer) snapshot(r *http.Request) console.Snapshot {
	snap := s.console.Snapshot()
	if !s.console.IsOperator(operatorSecret(r)) {
		return snap.Anonymous()
	}
	return snap
}
