package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"staffdir.org/internal/audit"
	"staffdir.org/internal/authz"
	"staffdir.org/internal/identity"
	"staffdir.org/internal/identity/provider"
	"staffdir.org/internal/ids"
	"staffdir.org/internal/session"
)

const stateCookieName = "staffdir_oauth_state"

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	City        string `json:"city"`
	Persistent  bool   `json:"persistent"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Persistent bool   `json:"persistent"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.resolver.Register(r.Context(), identity.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		City:        req.City,
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"new_user_id": user.ID,
		"email":       user.Email,
	})

	// An administrator registering someone else keeps their own session;
	// the response points at user management instead of logging the admin
	// out of their account.
	if sess, ok := session.FromContext(r.Context()); ok {
		if decision, err := a.engine.Evaluate(authz.PolicyAdminRole, authz.Input{Session: sess}); err == nil && decision.Granted {
			writeJSON(w, http.StatusCreated, map[string]any{
				"user":    user,
				"managed": true,
			})
			return
		}
	}

	if err := a.sessions.Issue(w, sessionForUser(user, req.Persistent)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session issue failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.resolver.ResolveLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
				"email": identity.NormalizeEmail(req.Email),
			})
		}
		handleIdentityError(w, r, err)
		return
	}

	if err := a.sessions.Issue(w, sessionForUser(user, req.Persistent)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session issue failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"login_user_id": user.ID,
		"persistent":    req.Persistent,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.sessions.Revoke(w)
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleExternal routes /v1/auth/external/{provider}/{start|callback}.
func (a *API) handleExternal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/auth/external/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	name, action := parts[0], parts[1]
	p, err := a.providers.Lookup(name)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "unknown provider")
		return
	}

	switch action {
	case "start":
		a.externalStart(w, r, p)
	case "callback":
		a.externalCallback(w, r, p)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) externalStart(w http.ResponseWriter, r *http.Request, p provider.Provider) {
	state := ids.New()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/v1/auth/external/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.AuthURL(state), http.StatusFound)
}

func (a *API) externalCallback(w http.ResponseWriter, r *http.Request, p provider.Provider) {
	q := r.URL.Query()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		writeError(w, r, http.StatusBadRequest, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/v1/auth/external/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	var cb provider.Callback
	if errParam := q.Get("error"); errParam != "" {
		cb = provider.Callback{Provider: p.Name(), Error: errParam}
	} else {
		code := q.Get("code")
		if code == "" {
			writeError(w, r, http.StatusBadRequest, "code is required")
			return
		}
		cb, err = p.Exchange(r.Context(), code)
		if err != nil {
			_ = audit.LogEvent(r.Context(), "auth.external.exchange_failed", map[string]any{
				"provider": p.Name(),
			})
			writeError(w, r, http.StatusBadGateway, "provider exchange failed")
			return
		}
	}

	user, err := a.resolver.ResolveExternal(r.Context(), cb)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if err := a.sessions.Issue(w, sessionForUser(user, false)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "session issue failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.external.login", map[string]any{
		"provider":      p.Name(),
		"login_user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// sessionForUser snapshots the user's identity, roles, and claims into a
// session. The snapshot stays fixed until the next login.
func sessionForUser(u *identity.User, persistent bool) session.Session {
	claims := make(map[string]string, len(u.Claims))
	for _, c := range u.Claims {
		claims[c.Type] = c.Value
	}
	return session.Session{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       session.NormalizeRoles(u.Roles),
		Claims:      claims,
		Persistent:  persistent,
	}
}

func handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, identity.ErrMissingEmailClaim):
		writeError(w, r, http.StatusBadRequest, "external provider did not supply an email")
	case errors.Is(err, identity.ErrExternalProvider):
		writeError(w, r, http.StatusBadGateway, "external provider error")
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, identity.ErrConflict):
		writeError(w, r, http.StatusConflict, "already exists")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
