// Package config loads runtime configuration from the environment. A local
// .env file, when present, is applied first so development setups do not need
// exported variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProviderCredentials holds the OAuth client registration for one external
// identity provider.
type ProviderCredentials struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Config is the full runtime configuration of the service.
type Config struct {
	Addr   string
	PGDSN  string
	Secure bool

	SessionSecret        string
	SessionTTL           time.Duration
	PersistentSessionTTL time.Duration

	PasswordMinLength  int
	PasswordMinClasses int

	Providers []ProviderCredentials
}

// Load reads configuration from STAFFDIR_* environment variables, applying
// .env first when one exists in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          envOr("STAFFDIR_HTTP_ADDR", ":8080"),
		PGDSN:         strings.TrimSpace(os.Getenv("STAFFDIR_PG_DSN")),
		Secure:        envBool("STAFFDIR_SECURE_COOKIES", false),
		SessionSecret: strings.TrimSpace(os.Getenv("STAFFDIR_SESSION_SECRET")),
	}

	var err error
	if cfg.SessionTTL, err = envDuration("STAFFDIR_SESSION_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PersistentSessionTTL, err = envDuration("STAFFDIR_PERSISTENT_SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PasswordMinLength, err = envInt("STAFFDIR_PASSWORD_MIN_LENGTH", 10); err != nil {
		return Config{}, err
	}
	if cfg.PasswordMinClasses, err = envInt("STAFFDIR_PASSWORD_MIN_CLASSES", 3); err != nil {
		return Config{}, err
	}

	if cfg.SessionSecret == "" {
		return Config{}, errors.New("STAFFDIR_SESSION_SECRET is required")
	}
	if cfg.PasswordMinLength < 1 {
		return Config{}, errors.New("STAFFDIR_PASSWORD_MIN_LENGTH must be at least 1")
	}
	if cfg.PasswordMinClasses < 1 || cfg.PasswordMinClasses > 4 {
		return Config{}, errors.New("STAFFDIR_PASSWORD_MIN_CLASSES must be between 1 and 4")
	}

	redirectBase := strings.TrimRight(envOr("STAFFDIR_OAUTH_REDIRECT_BASE", "http://localhost:8080"), "/")
	for _, name := range []string{"google", "facebook"} {
		upper := strings.ToUpper(name)
		id := strings.TrimSpace(os.Getenv("STAFFDIR_" + upper + "_CLIENT_ID"))
		secret := strings.TrimSpace(os.Getenv("STAFFDIR_" + upper + "_CLIENT_SECRET"))
		if id == "" && secret == "" {
			continue
		}
		if id == "" || secret == "" {
			return Config{}, fmt.Errorf("provider %s needs both client id and client secret", name)
		}
		cfg.Providers = append(cfg.Providers, ProviderCredentials{
			Name:         name,
			ClientID:     id,
			ClientSecret: secret,
			RedirectURI:  redirectBase + "/v1/auth/external/" + name + "/callback",
		})
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
