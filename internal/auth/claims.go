package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// Claim extraction for verified token payloads. Issuers disagree on where
// role information lives and how lists are encoded, so everything funnels
// through toList, which accepts native arrays, space/comma-delimited strings
// and Postgres-style set literals ("{A,B}"). Unknown shapes are ignored,
// never rejected.

var splitRe = regexp.MustCompile(`[,\s]+`)

func toList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, e := range x {
			s := strings.TrimSpace(fmt.Sprint(e))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			var out []string
			for _, p := range strings.Split(s[1:len(s)-1], ",") {
				p = strings.Trim(strings.TrimSpace(p), `"`)
				if p != "" {
					out = append(out, p)
				}
			}
			return out
		}
		var out []string
		for _, p := range splitRe.Split(s, -1) {
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	case float64, int, int64, bool, fmt.Stringer:
		s := strings.TrimSpace(fmt.Sprint(v))
		if s == "" {
			return nil
		}
		return []string{s}
	default:
		// Maps and anything else unrecognized are ignored, not rejected.
		return nil
	}
}

// ExtractRoles collects role names from the payload: the canonical "roles"
// claim first, then "groups", then Keycloak-style realm_access.roles and
// resource_access.<client>.roles. Order is preserved, duplicates dropped.
func ExtractRoles(payload map[string]any) []string {
	out := []string{}
	seen := map[string]bool{}
	add := func(xs []string) {
		for _, x := range xs {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}

	add(toList(payload["roles"]))
	add(toList(payload["groups"]))

	if realm, ok := payload["realm_access"].(map[string]any); ok {
		add(toList(realm["roles"]))
	}
	if res, ok := payload["resource_access"].(map[string]any); ok {
		for _, v := range res {
			if client, ok := v.(map[string]any); ok {
				add(toList(client["roles"]))
			}
		}
	}
	return out
}

// ExtractScopes collects permission strings from "scope"/"scopes"/"scp".
// Scopes are not roles; the two sets are never merged.
func ExtractScopes(payload map[string]any) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, claim := range []string{"scope", "scopes", "scp"} {
		for _, s := range toList(payload[claim]) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
