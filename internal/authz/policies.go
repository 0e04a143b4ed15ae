package authz

// Role and claim names used by the built-in policies.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"

	ClaimEditRole = "edit_role"
	ClaimTrue     = "true"
)

// Built-in policy names.
const (
	// PolicyAdminRole gates the read-only administrative surface.
	PolicyAdminRole = "admin-role"
	// PolicyDeleteRole gates destructive role removal across all users.
	PolicyDeleteRole = "delete-role"
	// PolicyEditRole gates role and claim changes on a target account.
	PolicyEditRole = "edit-role"
)

// DefaultPolicies returns the policy set the service registers at startup.
// Super admins override every policy that manages roles.
func DefaultPolicies() []Policy {
	return []Policy{
		{
			Name: PolicyAdminRole,
			Requirements: []Requirement{
				RoleRequirement{Roles: []string{RoleAdmin, RoleSuperAdmin}},
			},
		},
		{
			Name: PolicyDeleteRole,
			Requirements: []Requirement{
				AllRequirement{Requirements: []Requirement{
					RoleRequirement{Roles: []string{RoleAdmin}},
					ClaimRequirement{Type: ClaimEditRole, Value: ClaimTrue},
				}},
				OverrideRequirement{Requirement: RoleRequirement{Roles: []string{RoleSuperAdmin}}},
			},
		},
		{
			Name: PolicyEditRole,
			Requirements: []Requirement{
				SelfExclusionRequirement{Role: RoleAdmin, ClaimType: ClaimEditRole, ClaimValue: ClaimTrue},
				OverrideRequirement{Requirement: RoleRequirement{Roles: []string{RoleSuperAdmin}}},
			},
		},
	}
}
