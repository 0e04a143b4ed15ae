package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"staffdir.org/internal/authz"
	"staffdir.org/internal/directory"
	"staffdir.org/internal/identity"
	"staffdir.org/internal/identity/provider"
	"staffdir.org/internal/session"
)

// fakeStore is an in-memory identity.Store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	seq     int
	users   map[string]*identity.User
	byEmail map[string]string
	links   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*identity.User),
		byEmail: make(map[string]string),
		links:   make(map[string]string),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := identity.NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return identity.ErrConflict
	}
	if u.ID == "" {
		s.seq++
		u.ID = fmt.Sprintf("user-%d", s.seq)
	}
	copied := *u
	s.users[u.ID] = &copied
	s.byEmail[email] = u.ID
	return nil
}

func (s *fakeStore) FindUserByID(_ context.Context, id string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeStore) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	s.mu.Lock()
	id, ok := s.byEmail[identity.NormalizeEmail(email)]
	s.mu.Unlock()
	if !ok {
		return nil, identity.ErrNotFound
	}
	return s.FindUserByID(ctx, id)
}

func (s *fakeStore) ListUsers(_ context.Context) ([]*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*identity.User
	for _, u := range s.users {
		copied := *u
		users = append(users, &copied)
	}
	return users, nil
}

func (s *fakeStore) SetRoles(_ context.Context, userID string, roles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.Roles = session.NormalizeRoles(roles)
	return nil
}

func (s *fakeStore) SetClaims(_ context.Context, userID string, claims []identity.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	u.Claims = append([]identity.Claim(nil), claims...)
	return nil
}

func (s *fakeStore) DeleteRole(_ context.Context, role string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	affected := 0
	for _, u := range s.users {
		kept := u.Roles[:0]
		for _, r := range u.Roles {
			if r == role {
				affected++
				continue
			}
			kept = append(kept, r)
		}
		u.Roles = kept
	}
	return affected, nil
}

func (s *fakeStore) FindExternalLogin(_ context.Context, provider, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.links[provider+"/"+key]
	if !ok {
		return "", identity.ErrNotFound
	}
	return id, nil
}

func (s *fakeStore) CreateExternalLogin(_ context.Context, link *identity.ExternalLogin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := link.Provider + "/" + link.ProviderKey
	if _, ok := s.links[k]; ok {
		return identity.ErrConflict
	}
	s.links[k] = link.UserID
	return nil
}

// stubProvider returns a canned callback without talking to anyone.
type stubProvider struct {
	name string
	cb   provider.Callback
	err  error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) AuthURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (p stubProvider) Exchange(context.Context, string) (provider.Callback, error) {
	return p.cb, p.err
}

type testEnv struct {
	api   *API
	store *fakeStore
}

func newTestEnv(t *testing.T, providers ...provider.Provider) *testEnv {
	t.Helper()

	store := newFakeStore()
	resolver, err := identity.NewResolver(store,
		identity.WithPasswordPolicy(identity.PasswordPolicy{MinLength: 8, MinDistinctClasses: 2}))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	sessions, err := session.NewIssuer([]byte("test-secret"), time.Hour, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	engine, err := authz.NewEngine(authz.DefaultPolicies()...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	registry, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	api := New(Config{
		Resolver:  resolver,
		Store:     store,
		Sessions:  sessions,
		Engine:    engine,
		Providers: registry,
		Directory: directory.NewMemoryRepository(),
		Version:   "test",
	})
	return &testEnv{api: api, store: store}
}

// seedUser creates an account directly in the store and returns it.
func (e *testEnv) seedUser(t *testing.T, email string, roles []string, claims []identity.Claim) *identity.User {
	t.Helper()
	hash, err := identity.HashPassword("seed-pass-1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &identity.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        session.NormalizeRoles(roles),
		Claims:       claims,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// sessionCookie signs a session for the user and returns the cookie to send.
func (e *testEnv) sessionCookie(t *testing.T, u *identity.User) *http.Cookie {
	t.Helper()
	token, err := e.api.sessions.Sign(sessionForUser(u, false))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return &http.Cookie{Name: session.CookieName, Value: token}
}
