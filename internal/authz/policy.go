// Package authz holds the static action policy. Decisions are role-based:
// the super-role passes everything, otherwise the principal's roles must
// intersect the action's permitted set.
package authz

import (
	"errors"
	"fmt"

	"github.com/devopsevgeny/FinalProject/internal/auth"
)

var ErrForbidden = errors.New("authz: forbidden")

// Action identifiers. Looking up anything else is a programming error and
// panics; it must be caught by tests, not mapped to a runtime denial.
const (
	ActionConfigGet = "config:get"
	ActionConfigPut = "config:put"
	ActionSecretGet = "secret:get"
	ActionSecretPut = "secret:put"
	ActionUserList  = "user:list"
	ActionUserGrant = "user:grant"
)

var policy = map[string][]string{
	ActionConfigGet: {auth.RoleConfigViewer, auth.RoleConfigAdmin},
	ActionConfigPut: {auth.RoleConfigAdmin},
	ActionSecretGet: {auth.RoleSecretViewer, auth.RoleSecretAdmin},
	ActionSecretPut: {auth.RoleSecretAdmin},
	ActionUserList:  {auth.RoleUserViewer, auth.RoleUserAdmin},
	ActionUserGrant: {auth.RoleUserAdmin},
}

// Allow grants when the principal holds the super-role or any role permitted
// for the action; the super-role check runs first and is unconditional.
func Allow(p *auth.Principal, action string) error {
	allowed, ok := policy[action]
	if !ok {
		panic(fmt.Sprintf("authz: unknown action %q", action))
	}
	if p == nil {
		return ErrForbidden
	}
	if p.HasRole(auth.RoleGlobalAdmin) {
		return nil
	}
	for _, role := range allowed {
		if p.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}

// Actions lists every defined action identifier.
func Actions() []string {
	out := make([]string, 0, len(policy))
	for a := range policy {
		out = append(out, a)
	}
	return out
}
