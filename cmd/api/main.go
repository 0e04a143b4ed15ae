package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"staffdir.org/internal/authz"
	"staffdir.org/internal/config"
	"staffdir.org/internal/directory"
	"staffdir.org/internal/httpapi"
	"staffdir.org/internal/identity"
	"staffdir.org/internal/identity/provider"
	"staffdir.org/internal/obs"
	"staffdir.org/internal/session"
)

var (
	version = "1.1.0"
	commit  = "unknown"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("STAFFDIR_PG_DSN is required")
	}

	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := identity.NewPGStore(db)
	resolver, err := identity.NewResolver(store,
		identity.WithPasswordPolicy(identity.PasswordPolicy{
			MinLength:          cfg.PasswordMinLength,
			MinDistinctClasses: cfg.PasswordMinClasses,
		}))
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}

	sessions, err := session.NewIssuer([]byte(cfg.SessionSecret),
		cfg.SessionTTL, cfg.PersistentSessionTTL,
		session.WithSecureCookies(cfg.Secure))
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}

	engine, err := authz.NewEngine(authz.DefaultPolicies()...)
	if err != nil {
		log.Fatalf("authz: %v", err)
	}

	providers := make([]provider.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		switch pc.Name {
		case "google":
			providers = append(providers, provider.NewGoogle(pc.ClientID, pc.ClientSecret, pc.RedirectURI))
		case "facebook":
			providers = append(providers, provider.NewFacebook(pc.ClientID, pc.ClientSecret, pc.RedirectURI))
		default:
			log.Fatalf("unsupported provider %q", pc.Name)
		}
	}
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		log.Fatalf("providers: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Resolver:   resolver,
		Store:      store,
		Sessions:   sessions,
		Engine:     engine,
		Providers:  registry,
		Directory:  directory.NewPGRepository(db),
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting staffdir-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
