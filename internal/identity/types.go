// Package identity resolves who a request belongs to. It owns the account
// records, the local and external login flows, and the password rules.
package identity

import (
	"strings"
	"time"
)

// Claim is a single authorization claim granted to a user.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// User is one account in the directory.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name,omitempty"`
	City         string    `json:"city,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
	Claims       []Claim   `json:"claims,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can log in locally. Accounts
// created through an external provider carry no hash.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// ExternalLogin links a provider identity to a local account. The
// (Provider, ProviderKey) pair is unique across the system.
type ExternalLogin struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderKey string    `json:"provider_key"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email address. All storage and
// lookups go through this so casing never splits one account in two.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
