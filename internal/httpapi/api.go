// Package httpapi is the JSON HTTP surface of the directory service.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"staffdir.org/internal/authz"
	"staffdir.org/internal/directory"
	"staffdir.org/internal/identity"
	"staffdir.org/internal/identity/provider"
	"staffdir.org/internal/obs"
	"staffdir.org/internal/session"
)

// ReadyProbe reports readiness (e.g. database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API's collaborators.
type Config struct {
	Resolver   *identity.Resolver
	Store      identity.Store
	Sessions   *session.Issuer
	Engine     *authz.Engine
	Providers  *provider.Registry
	Directory  directory.Repository
	ReadyProbe ReadyProbe
	Version    string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	resolver   *identity.Resolver
	store      identity.Store
	sessions   *session.Issuer
	engine     *authz.Engine
	providers  *provider.Registry
	directory  directory.Repository
	readyProbe ReadyProbe
	version    string
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		resolver:   cfg.Resolver,
		store:      cfg.Store,
		sessions:   cfg.Sessions,
		engine:     cfg.Engine,
		providers:  cfg.Providers,
		directory:  cfg.Directory,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/external/", a.handleExternal)

	// directory
	a.mux.HandleFunc("/v1/employees", a.handleEmployees)
	a.mux.HandleFunc("/v1/employees/", a.handleEmployee)

	// administration
	a.mux.HandleFunc("/v1/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/v1/admin/users/", a.handleAdminUser)
	a.mux.HandleFunc("/v1/admin/roles/", a.handleAdminRole)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withSession(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "staffdir-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "staffdir-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
