package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STAFFDIR_SESSION_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
	if cfg.PasswordMinLength != 10 || cfg.PasswordMinClasses != 3 {
		t.Fatalf("unexpected password policy: %d/%d", cfg.PasswordMinLength, cfg.PasswordMinClasses)
	}
	if len(cfg.Providers) != 0 {
		t.Fatalf("expected no providers without credentials, got %v", cfg.Providers)
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("STAFFDIR_SESSION_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestLoadProviders(t *testing.T) {
	t.Setenv("STAFFDIR_SESSION_SECRET", "test-secret")
	t.Setenv("STAFFDIR_OAUTH_REDIRECT_BASE", "https://directory.example.com/")
	t.Setenv("STAFFDIR_GOOGLE_CLIENT_ID", "google-id")
	t.Setenv("STAFFDIR_GOOGLE_CLIENT_SECRET", "google-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("expected one provider, got %v", cfg.Providers)
	}
	p := cfg.Providers[0]
	if p.Name != "google" || p.ClientID != "google-id" {
		t.Fatalf("unexpected provider: %+v", p)
	}
	if p.RedirectURI != "https://directory.example.com/v1/auth/external/google/callback" {
		t.Fatalf("unexpected redirect uri: %s", p.RedirectURI)
	}
}

func TestLoadRejectsPartialProvider(t *testing.T) {
	t.Setenv("STAFFDIR_SESSION_SECRET", "test-secret")
	t.Setenv("STAFFDIR_FACEBOOK_CLIENT_ID", "fb-id")
	t.Setenv("STAFFDIR_FACEBOOK_CLIENT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected partial provider error")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("STAFFDIR_SESSION_SECRET", "test-secret")
	t.Setenv("STAFFDIR_SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected duration parse error")
	}
}
