// Package authz evaluates named authorization policies against the current
// session. A policy is a set of requirements; each requirement votes and the
// engine combines the votes into a single decision.
package authz

import (
	"strings"

	"staffdir.org/internal/session"
)

// Outcome is one requirement's vote on an authorization input.
type Outcome int

const (
	// Abstain means the requirement has no opinion. A policy whose
	// requirements all abstain is denied.
	Abstain Outcome = iota
	// Grant allows access unless another requirement denies it.
	Grant
	// Deny blocks access regardless of ordinary grants.
	Deny
	// OverrideGrant allows access even in the presence of a Deny.
	OverrideGrant
)

func (o Outcome) String() string {
	switch o {
	case Grant:
		return "grant"
	case Deny:
		return "deny"
	case OverrideGrant:
		return "override_grant"
	default:
		return "abstain"
	}
}

// Input carries everything a requirement may inspect. TargetUserID is set
// when the guarded operation acts on a specific account.
type Input struct {
	Session      session.Session
	TargetUserID string
}

// Requirement is one rule inside a policy.
type Requirement interface {
	Evaluate(in Input) Outcome
}

// RoleRequirement grants when the session holds any of the listed roles.
type RoleRequirement struct {
	Roles []string
}

func (r RoleRequirement) Evaluate(in Input) Outcome {
	for _, role := range r.Roles {
		if in.Session.HasRole(role) {
			return Grant
		}
	}
	return Abstain
}

// ClaimRequirement grants when the session holds the claim with exactly the
// required value.
type ClaimRequirement struct {
	Type  string
	Value string
}

func (r ClaimRequirement) Evaluate(in Input) Outcome {
	if in.Session.HasClaim(r.Type, r.Value) {
		return Grant
	}
	return Abstain
}

// AllRequirement grants only when every nested requirement grants. A nested
// Deny passes through; anything else short of a grant abstains.
type AllRequirement struct {
	Requirements []Requirement
}

func (r AllRequirement) Evaluate(in Input) Outcome {
	if len(r.Requirements) == 0 {
		return Abstain
	}
	for _, req := range r.Requirements {
		switch req.Evaluate(in) {
		case Deny:
			return Deny
		case Grant, OverrideGrant:
		default:
			return Abstain
		}
	}
	return Grant
}

// OverrideRequirement escalates a nested grant into an OverrideGrant. It
// backs role-hierarchy rules where a senior role wins regardless of the
// other requirements.
type OverrideRequirement struct {
	Requirement Requirement
}

func (r OverrideRequirement) Evaluate(in Input) Outcome {
	switch r.Requirement.Evaluate(in) {
	case Grant, OverrideGrant:
		return OverrideGrant
	case Deny:
		return Deny
	default:
		return Abstain
	}
}

// SelfExclusionRequirement grants holders of the role and claim the right to
// act on other accounts, never on their own.
type SelfExclusionRequirement struct {
	Role       string
	ClaimType  string
	ClaimValue string
}

func (r SelfExclusionRequirement) Evaluate(in Input) Outcome {
	if !in.Session.HasRole(r.Role) || !in.Session.HasClaim(r.ClaimType, r.ClaimValue) {
		return Abstain
	}
	target := strings.TrimSpace(in.TargetUserID)
	if target == "" || target == in.Session.UserID {
		return Abstain
	}
	return Grant
}
