package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	google := NewGoogle("id", "secret", "http://localhost/cb")
	facebook := NewFacebook("id", "secret", "http://localhost/cb")

	reg, err := NewRegistry(google, facebook)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if p, err := reg.Lookup("Google"); err != nil || p.Name() != "google" {
		t.Fatalf("Lookup google: %v", err)
	}
	if _, err := reg.Lookup("twitter"); err != ErrUnknownProvider {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "facebook" || names[1] != "google" {
		t.Fatalf("unexpected names: %v", names)
	}

	if _, err := NewRegistry(google, NewGoogle("other", "secret", "http://localhost/cb")); err == nil {
		t.Fatalf("expected duplicate provider error")
	}
}

func TestGoogleAuthURL(t *testing.T) {
	g := NewGoogle("client-1", "secret", "https://directory.example.com/v1/auth/external/google/callback")
	raw := g.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "client-1" || q.Get("state") != "state-123" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected auth url: %s", raw)
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Fatalf("scope must request email: %s", q.Get("scope"))
	}
}

func TestGoogleExchange(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":   "sub-42",
			"email": "mary@staffdir.org",
			"name":  "Mary",
		})
	}))
	defer userinfo.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != "code-1" {
			t.Errorf("unexpected token request: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
	}))
	defer token.Close()

	g := NewGoogle("id", "secret", "http://localhost/cb",
		WithGoogleEndpoints("http://unused", token.URL, userinfo.URL))

	cb, err := g.Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if cb.Provider != "google" || cb.Key != "sub-42" {
		t.Fatalf("unexpected callback: %+v", cb)
	}
	if cb.Claims["email"] != "mary@staffdir.org" || cb.Claims["name"] != "Mary" {
		t.Fatalf("unexpected claims: %v", cb.Claims)
	}
}

func TestGoogleExchangeTokenError(t *testing.T) {
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer token.Close()

	g := NewGoogle("id", "secret", "http://localhost/cb",
		WithGoogleEndpoints("http://unused", token.URL, "http://unused"))
	if _, err := g.Exchange(context.Background(), "stale-code"); err == nil {
		t.Fatalf("expected exchange error")
	}
}

func TestFacebookExchange(t *testing.T) {
	profile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "fb-token" {
			t.Errorf("unexpected access token: %s", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":    "fb-7",
			"name":  "Sam",
			"email": "sam@staffdir.org",
		})
	}))
	defer profile.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("code"); got != "code-fb" {
			t.Errorf("unexpected code: %s", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fb-token"})
	}))
	defer token.Close()

	f := NewFacebook("id", "secret", "http://localhost/cb",
		WithFacebookEndpoints("http://unused", token.URL, profile.URL))

	cb, err := f.Exchange(context.Background(), "code-fb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if cb.Provider != "facebook" || cb.Key != "fb-7" {
		t.Fatalf("unexpected callback: %+v", cb)
	}
	if cb.Claims["email"] != "sam@staffdir.org" {
		t.Fatalf("unexpected claims: %v", cb.Claims)
	}
}

func TestFacebookExchangeWithoutEmail(t *testing.T) {
	profile := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "fb-8", "name": "No Email"})
	}))
	defer profile.Close()
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fb-token"})
	}))
	defer token.Close()

	f := NewFacebook("id", "secret", "http://localhost/cb",
		WithFacebookEndpoints("http://unused", token.URL, profile.URL))

	cb, err := f.Exchange(context.Background(), "code-fb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if _, ok := cb.Claims["email"]; ok {
		t.Fatalf("email claim must be absent: %v", cb.Claims)
	}
}
