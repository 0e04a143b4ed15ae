package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staffdir.org/internal/identity/provider"
)

// Resolver turns credentials into a resolved local user. It never issues a
// session itself; callers hand the returned user to the session issuer.
type Resolver struct {
	store  Store
	policy PasswordPolicy
	now    func() time.Time
}

// ResolverOption configures optional Resolver behavior.
type ResolverOption func(*Resolver)

// WithPasswordPolicy overrides the default password policy.
func WithPasswordPolicy(policy PasswordPolicy) ResolverOption {
	return func(r *Resolver) { r.policy = policy }
}

// WithClock overrides the time source. Only intended for test use.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver builds a Resolver on top of the credential store.
func NewResolver(store Store, opts ...ResolverOption) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	r := &Resolver{
		store:  store,
		policy: DefaultPasswordPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolveLocal verifies an email/password pair against the store. Absent
// users, password-less accounts, and wrong passwords all collapse into
// ErrInvalidCredentials so responses never reveal which part failed.
func (r *Resolver) ResolveLocal(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := r.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RegisterInput is the profile submitted with a registration request.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	City        string
}

// Register creates a local account. A taken email fails with an error
// wrapping ErrValidation regardless of password validity.
func (r *Resolver) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if err := r.policy.Validate(in.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := r.now()
	user := &User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		City:         strings.TrimSpace(in.City),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: email is already registered", ErrValidation)
		}
		return nil, err
	}
	return user, nil
}

// ResolveExternal reconciles an external-provider callback with the local
// account base:
//
//  1. a provider-reported error aborts the flow;
//  2. an existing linkage resolves directly to its user;
//  3. without a linkage, the provider must have supplied an email claim;
//  4. the account is found or created by email and the linkage recorded.
//
// Concurrent callbacks for the same identity race on the store's unique
// constraints; losers re-read the winner's rows instead of failing.
func (r *Resolver) ResolveExternal(ctx context.Context, cb provider.Callback) (*User, error) {
	if cb.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrExternalProvider, cb.Provider, cb.Error)
	}
	if cb.Provider == "" || cb.Key == "" {
		return nil, fmt.Errorf("%w: callback missing provider identity", ErrExternalProvider)
	}

	userID, err := r.store.FindExternalLogin(ctx, cb.Provider, cb.Key)
	switch {
	case err == nil:
		return r.store.FindUserByID(ctx, userID)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	email := NormalizeEmail(cb.Claims["email"])
	if email == "" {
		return nil, ErrMissingEmailClaim
	}

	user, err := r.findOrCreateByEmail(ctx, email, cb.Claims["name"])
	if err != nil {
		return nil, err
	}

	link := &ExternalLogin{
		Provider:    cb.Provider,
		ProviderKey: cb.Key,
		UserID:      user.ID,
		CreatedAt:   r.now(),
	}
	if err := r.store.CreateExternalLogin(ctx, link); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		// Lost the race; the linkage now exists and decides the user.
		winnerID, lookupErr := r.store.FindExternalLogin(ctx, cb.Provider, cb.Key)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return r.store.FindUserByID(ctx, winnerID)
	}
	return user, nil
}

func (r *Resolver) findOrCreateByEmail(ctx context.Context, email, displayName string) (*User, error) {
	user, err := r.store.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := r.now()
	created := &User{
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.CreateUser(ctx, created); err == nil {
		return created, nil
	} else if !errors.Is(err, ErrConflict) {
		return nil, err
	}
	// Another request created the account first.
	return r.store.FindUserByEmail(ctx, email)
}
