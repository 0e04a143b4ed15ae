package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"staffdir.org/internal/authz"
	"staffdir.org/internal/session"
)

var publicPaths = []string{
	"/",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/logout",
}

var publicPrefixes = []string{
	"/v1/auth/external/",
}

// withSession verifies the session cookie (or bearer token) and attaches
// the session to the request context. Requests outside the public surface
// are rejected without a valid session.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := a.sessions.FromRequest(r)
		if err == nil {
			ctx := session.ContextWithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeError(w, r, http.StatusUnauthorized, "authentication required")
		case errors.Is(err, session.ErrInvalidToken):
			writeError(w, r, http.StatusUnauthorized, "invalid session")
		default:
			writeError(w, r, http.StatusInternalServerError, "authentication error")
		}
	})
}

// requirePolicy evaluates the named policy for the current session and
// writes the failure response itself. The caller proceeds only on true.
func (a *API) requirePolicy(w http.ResponseWriter, r *http.Request, policy, targetUserID string) bool {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	decision, err := a.engine.Evaluate(policy, authz.Input{Session: sess, TargetUserID: targetUserID})
	if err != nil {
		// An unregistered policy is a deployment defect, not a user denial.
		writeError(w, r, http.StatusInternalServerError, "authorization misconfigured")
		return false
	}
	if !decision.Granted {
		writeError(w, r, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
