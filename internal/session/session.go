// Package session issues and verifies the signed cookie that carries an
// authenticated user's identity plus a snapshot of their roles and claims.
// Authorization decisions during the session's lifetime read only this
// snapshot; role or claim changes take effect on the next login.
package session

import "strings"

// Session is the authenticated state bound to one browser session.
type Session struct {
	UserID      string            `json:"user_id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name,omitempty"`
	Roles       []string          `json:"roles,omitempty"`
	Claims      map[string]string `json:"claims,omitempty"`
	Persistent  bool              `json:"persistent,omitempty"`
}

// HasRole reports whether the snapshot contains the role. Role names are
// compared case-insensitively.
func (s Session) HasRole(role string) bool {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasClaim reports whether the snapshot contains a claim of the given type
// with exactly the given value.
func (s Session) HasClaim(claimType, value string) bool {
	v, ok := s.Claims[claimType]
	return ok && v == value
}

// NormalizeRoles lower-cases, trims, and deduplicates role names.
func NormalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}
