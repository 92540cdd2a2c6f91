package authz

import (
	"errors"
	"testing"

	"github.com/devopsevgeny/FinalProject/internal/auth"
)

func TestGlobalAdminPassesEverything(t *testing.T) {
	p := &auth.Principal{ID: "a", Roles: []string{auth.RoleGlobalAdmin}}
	for _, action := range Actions() {
		if err := Allow(p, action); err != nil {
			t.Fatalf("global admin denied %s: %v", action, err)
		}
	}
}

func TestNoRolesFailsEverything(t *testing.T) {
	p := &auth.Principal{ID: "b", Roles: []string{}}
	for _, action := range Actions() {
		if err := Allow(p, action); !errors.Is(err, ErrForbidden) {
			t.Fatalf("empty role set allowed %s", action)
		}
	}
}

func TestRoleIntersection(t *testing.T) {
	cases := []struct {
		roles  []string
		action string
		allow  bool
	}{
		{[]string{auth.RoleConfigViewer}, ActionConfigGet, true},
		{[]string{auth.RoleConfigViewer}, ActionConfigPut, false},
		{[]string{auth.RoleConfigAdmin}, ActionConfigPut, true},
		{[]string{auth.RoleConfigAdmin}, ActionSecretGet, false},
		{[]string{auth.RoleSecretAdmin}, ActionSecretPut, true},
		{[]string{auth.RoleSecretViewer}, ActionSecretPut, false},
		{[]string{auth.RoleUserViewer, auth.RoleSecretViewer}, ActionSecretGet, true},
		{[]string{auth.RoleUserAdmin}, ActionUserGrant, true},
	}
	for _, tc := range cases {
		err := Allow(&auth.Principal{ID: "c", Roles: tc.roles}, tc.action)
		if tc.allow && err != nil {
			t.Fatalf("roles %v denied %s: %v", tc.roles, tc.action, err)
		}
		if !tc.allow && !errors.Is(err, ErrForbidden) {
			t.Fatalf("roles %v allowed %s", tc.roles, tc.action)
		}
	}
}

func TestScopesDoNotAuthorize(t *testing.T) {
	p := &auth.Principal{ID: "d", Roles: []string{}, Scopes: []string{"config.read", "config.write"}}
	if err := Allow(p, ActionConfigGet); !errors.Is(err, ErrForbidden) {
		t.Fatal("scopes must not substitute for roles")
	}
}

func TestUnknownActionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown action")
		}
	}()
	_ = Allow(&auth.Principal{ID: "e"}, "config:delete")
}
