package httpapi

import (
	"net/http"
	"strings"

	"staffdir.org/internal/audit"
	"staffdir.org/internal/authz"
	"staffdir.org/internal/identity"
)

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePolicy(w, r, authz.PolicyAdminRole, "") {
		return
	}
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if users == nil {
		users = []*identity.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

type claimsRequest struct {
	Claims []identity.Claim `json:"claims"`
}

// handleAdminUser routes /v1/admin/users/{id}/{roles|claims}.
func (a *API) handleAdminUser(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	userID, resource := parts[0], parts[1]

	switch resource {
	case "roles":
		a.updateUserRoles(w, r, userID)
	case "claims":
		a.updateUserClaims(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) updateUserRoles(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.requirePolicy(w, r, authz.PolicyEditRole, userID) {
		return
	}

	var req rolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.store.FindUserByID(r.Context(), userID); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if err := a.store.SetRoles(r.Context(), userID, req.Roles); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.roles_updated", map[string]any{
		"target_user_id": userID,
		"roles":          req.Roles,
	})

	user, err := a.store.FindUserByID(r.Context(), userID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) updateUserClaims(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.requirePolicy(w, r, authz.PolicyEditRole, userID) {
		return
	}

	var req claimsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.store.FindUserByID(r.Context(), userID); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if err := a.store.SetClaims(r.Context(), userID, req.Claims); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.claims_updated", map[string]any{
		"target_user_id": userID,
	})

	user, err := a.store.FindUserByID(r.Context(), userID)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleAdminRole routes /v1/admin/roles/{role}.
func (a *API) handleAdminRole(w http.ResponseWriter, r *http.Request) {
	role := strings.TrimPrefix(r.URL.Path, "/v1/admin/roles/")
	if role == "" || strings.Contains(role, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.requirePolicy(w, r, authz.PolicyDeleteRole, "") {
		return
	}

	affected, err := a.store.DeleteRole(r.Context(), role)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.role.deleted", map[string]any{
		"role":           strings.ToLower(strings.TrimSpace(role)),
		"users_affected": affected,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"role":           strings.ToLower(strings.TrimSpace(role)),
		"users_affected": affected,
	})
}
