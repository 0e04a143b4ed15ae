// Package provider exchanges OAuth authorization codes with external
// identity providers and normalizes the result into a Callback.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Callback is the provider-neutral outcome of an external login attempt.
// Key is the provider's stable subject identifier, never an email.
type Callback struct {
	Provider string
	Key      string
	Claims   map[string]string
	Error    string
}

// Provider is one registered external identity provider.
type Provider interface {
	Name() string
	// AuthURL builds the provider's authorization redirect for the given
	// anti-forgery state.
	AuthURL(state string) string
	// Exchange trades the authorization code for the provider identity.
	Exchange(ctx context.Context, code string) (Callback, error)
}

// ErrUnknownProvider indicates a login attempt against a provider that was
// never registered.
var ErrUnknownProvider = errors.New("provider: unknown provider")

// Registry holds the configured providers. It is populated at startup and
// read-only afterwards.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the configured providers. Duplicate
// names are a configuration mistake and fail fast.
func NewRegistry(providers ...Provider) (*Registry, error) {
	reg := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			return nil, errors.New("provider: name is required")
		}
		if _, ok := reg.providers[name]; ok {
			return nil, fmt.Errorf("provider: duplicate provider %q", name)
		}
		reg.providers[name] = p
	}
	return reg, nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists the registered provider names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
