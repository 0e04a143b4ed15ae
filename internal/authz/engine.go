package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPolicyNotFound indicates evaluation against a policy name that was
// never registered.
var ErrPolicyNotFound = errors.New("authz: policy not found")

// Policy is a named set of requirements.
type Policy struct {
	Name         string
	Requirements []Requirement
}

// Decision is the combined result of evaluating one policy.
type Decision struct {
	Granted  bool
	Outcomes []Outcome
}

// Engine holds the policy registry. Policies are registered once at startup;
// the engine is immutable and safe for concurrent use afterwards.
type Engine struct {
	policies map[string]Policy
}

// NewEngine builds an engine from the given policies. Empty or duplicate
// policy names are configuration mistakes and fail fast.
func NewEngine(policies ...Policy) (*Engine, error) {
	e := &Engine{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return nil, errors.New("authz: policy name is required")
		}
		if len(p.Requirements) == 0 {
			return nil, fmt.Errorf("authz: policy %q has no requirements", name)
		}
		if _, ok := e.policies[name]; ok {
			return nil, fmt.Errorf("authz: duplicate policy %q", name)
		}
		p.Name = name
		e.policies[name] = p
	}
	return e, nil
}

// Evaluate runs every requirement of the named policy and combines the
// votes: an override grant wins outright, otherwise access requires at
// least one grant and no deny.
func (e *Engine) Evaluate(name string, in Input) (Decision, error) {
	policy, ok := e.policies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}

	decision := Decision{Outcomes: make([]Outcome, 0, len(policy.Requirements))}
	var granted, denied, overridden bool
	for _, req := range policy.Requirements {
		outcome := req.Evaluate(in)
		decision.Outcomes = append(decision.Outcomes, outcome)
		switch outcome {
		case Grant:
			granted = true
		case Deny:
			denied = true
		case OverrideGrant:
			overridden = true
		}
	}
	decision.Granted = overridden || (granted && !denied)
	return decision, nil
}

// Has reports whether the engine knows the policy name.
func (e *Engine) Has(name string) bool {
	_, ok := e.policies[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
