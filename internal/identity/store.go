package identity

import "context"

// Store is the persistence contract for accounts and external-login links.
// Implementations must enforce uniqueness of emails and of
// (provider, provider_key) pairs and report violations as ErrConflict.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	SetRoles(ctx context.Context, userID string, roles []string) error
	SetClaims(ctx context.Context, userID string, claims []Claim) error

	// DeleteRole removes the role from every user that holds it and reports
	// how many users were affected.
	DeleteRole(ctx context.Context, role string) (int, error)

	// FindExternalLogin returns the local user id linked to the provider
	// identity, or ErrNotFound when no linkage exists.
	FindExternalLogin(ctx context.Context, provider, providerKey string) (string, error)
	CreateExternalLogin(ctx context.Context, link *ExternalLogin) error
}
