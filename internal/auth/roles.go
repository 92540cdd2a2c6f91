package auth

import "strings"

// The RBAC vocabulary. RoleGlobalAdmin bypasses every per-action check.
const (
	RoleGlobalAdmin  = "GLOBAL_ADMIN"
	RoleConfigAdmin  = "CONFIG_ADMIN"
	RoleConfigViewer = "CONFIG_VIEWER"
	RoleSecretAdmin  = "SECRET_ADMIN"
	RoleSecretViewer = "SECRET_VIEWER"
	RoleUserAdmin    = "USER_ADMIN"
	RoleUserViewer   = "USER_VIEWER"
)

// roleScopes maps each role to the permission strings it grants. Scopes are
// informational for token consumers; authorization decisions stay role-based.
var roleScopes = map[string][]string{
	RoleGlobalAdmin:  {"config.read", "config.write", "secret.read", "secret.write", "user.read", "user.write"},
	RoleConfigAdmin:  {"config.read", "config.write"},
	RoleConfigViewer: {"config.read"},
	RoleSecretAdmin:  {"secret.read", "secret.write"},
	RoleSecretViewer: {"secret.read"},
	RoleUserAdmin:    {"user.read", "user.write"},
	RoleUserViewer:   {"user.read"},
}

// ScopesForRoles derives the deduplicated scope list for a role set,
// preserving first-seen order. Unknown roles contribute nothing.
func ScopesForRoles(roles []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range roles {
		for _, s := range roleScopes[r] {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// ScopeString renders the derived scopes as a space-delimited claim value.
func ScopeString(roles []string) string {
	return strings.Join(ScopesForRoles(roles), " ")
}
