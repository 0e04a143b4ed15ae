package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staffdir.org/internal/identity/provider"
	"staffdir.org/internal/session"
)

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestRegisterLoginMeLogout(t *testing.T) {
	env := newTestEnv(t)
	handler := env.api.Handler()

	// register
	body := `{"email":"Mary@StaffDir.org","password":"mary-pass-1","display_name":"Mary","city":"London"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if sessionCookieFrom(rr) == nil {
		t.Fatalf("register must issue a session cookie")
	}

	// login
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"mary@staffdir.org","password":"mary-pass-1"}`))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	cookie := sessionCookieFrom(rr)
	if cookie == nil {
		t.Fatalf("login must issue a session cookie")
	}

	// me
	req = httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rr.Code)
	}
	var me session.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "mary@staffdir.org" {
		t.Fatalf("unexpected me payload: %+v", me)
	}

	// me without a session
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("me unauthenticated: expected 401, got %d", rr.Code)
	}

	// logout
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rr.Code)
	}
	cleared := sessionCookieFrom(rr)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("logout must expire the session cookie")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "john@staffdir.org", nil, nil)
	handler := env.api.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"john@staffdir.org","password":"wrong-pass"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "invalid credentials" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	handler := env.api.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(`{"email":"weak@staffdir.org","password":"short"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("weak password: expected 400, got %d", rr.Code)
	}

	// duplicate email fails validation regardless of password
	env.seedUser(t, "taken@staffdir.org", nil, nil)
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(`{"email":"Taken@staffdir.org","password":"fine-pass-1"}`))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", rr.Code)
	}
}

func TestAdminRegisterKeepsOwnSession(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin@staffdir.org", []string{"admin"}, nil)
	handler := env.api.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(`{"email":"hire@staffdir.org","password":"hire-pass-1"}`))
	req.AddCookie(env.sessionCookie(t, admin))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if sessionCookieFrom(rr) != nil {
		t.Fatalf("admin-created account must not replace the admin session")
	}
	var body struct {
		Managed bool `json:"managed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Managed {
		t.Fatalf("expected managed response: %s", rr.Body.String())
	}
}

func TestExternalStartRedirects(t *testing.T) {
	env := newTestEnv(t, stubProvider{name: "google"})
	handler := env.api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/external/google/start", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	location := rr.Header().Get("Location")
	if !strings.HasPrefix(location, "https://provider.example.com/auth?state=") {
		t.Fatalf("unexpected redirect: %s", location)
	}

	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c.Value
		}
	}
	if state == "" || !strings.HasSuffix(location, state) {
		t.Fatalf("state cookie and redirect disagree: %q vs %q", state, location)
	}
}

func externalCallback(t *testing.T, handler http.Handler, query string, state string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/external/google/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestExternalCallbackCreatesAccount(t *testing.T) {
	env := newTestEnv(t, stubProvider{
		name: "google",
		cb: provider.Callback{
			Provider: "google",
			Key:      "sub-1",
			Claims:   map[string]string{"email": "new@staffdir.org", "name": "New Person"},
		},
	})
	handler := env.api.Handler()

	rr := externalCallback(t, handler, "state=s1&code=c1", "s1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if sessionCookieFrom(rr) == nil {
		t.Fatalf("callback must issue a session")
	}

	user, err := env.store.FindUserByEmail(context.Background(), "new@staffdir.org")
	if err != nil {
		t.Fatalf("account was not created: %v", err)
	}
	if user.HasPassword() {
		t.Fatalf("external account must have no password")
	}
	if linked, err := env.store.FindExternalLogin(context.Background(), "google", "sub-1"); err != nil || linked != user.ID {
		t.Fatalf("linkage missing: %s, %v", linked, err)
	}
}

func TestExternalCallbackFailures(t *testing.T) {
	env := newTestEnv(t, stubProvider{
		name: "google",
		cb: provider.Callback{
			Provider: "google",
			Key:      "sub-2",
			Claims:   map[string]string{"name": "No Email"},
		},
	})
	handler := env.api.Handler()

	// state mismatch
	rr := externalCallback(t, handler, "state=wrong&code=c1", "right")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("state mismatch: expected 400, got %d", rr.Code)
	}

	// provider-reported error
	rr = externalCallback(t, handler, "state=s1&error=access_denied", "s1")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("provider error: expected 502, got %d", rr.Code)
	}

	// no email claim
	rr = externalCallback(t, handler, "state=s2&code=c2", "s2")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing email: expected 400, got %d", rr.Code)
	}

	// unknown provider
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/external/twitter/start", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown provider: expected 404, got %d", rec.Code)
	}
}
