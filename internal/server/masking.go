package server

import "strings"

// sensitiveKeys marks object keys whose string values get redacted when a
// caller asks for a masked secret. Matching is case-insensitive and
// substring-based, so "db_password" and "apiKey" both count.
var sensitiveKeys = []string{
	"password", "secret", "key", "token", "api_key", "apikey", "auth", "credential",
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func maskString(v string) string {
	if len(v) > 6 {
		return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
	}
	return strings.Repeat("*", len(v))
}

// maskValue walks a decoded JSON value and redacts string values held under
// sensitive keys. Non-string values under sensitive keys are replaced
// wholesale. Everything else passes through untouched.
func maskValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				if s, ok := val.(string); ok {
					out[k] = maskString(s)
				} else {
					out[k] = "******"
				}
				continue
			}
			out[k] = maskValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = maskValue(val)
		}
		return out
	default:
		return v
	}
}
