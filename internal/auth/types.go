package auth

import (
	"errors"
	"fmt"
)

// Mode selects how callers are authenticated. It is fixed once at process
// start; handlers never switch modes per request.
type Mode string

const (
	ModeAPIKey Mode = "API_KEY"
	ModeBearer Mode = "BEARER"
)

// Coarse failure categories. Handlers report these to callers; the precise
// cause stays in the server log.
// Every category wraps ErrUnauthorized, so callers can branch on the
// category or treat them all as a single 401.
var (
	ErrUnauthorized = errors.New("auth: unauthorized")

	ErrMalformed    = fmt.Errorf("%w: malformed credential", ErrUnauthorized)
	ErrBadSignature = fmt.Errorf("%w: bad token signature", ErrUnauthorized)
	ErrBadIssuer    = fmt.Errorf("%w: bad token issuer", ErrUnauthorized)
	ErrBadAudience  = fmt.Errorf("%w: bad token audience", ErrUnauthorized)
	ErrExpired      = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

// Principal is the resolved identity of a caller. It is rebuilt on every
// request and never persisted.
type Principal struct {
	ID      string   `json:"id"`
	Subject string   `json:"subject,omitempty"`
	Issuer  string   `json:"issuer,omitempty"`
	Roles   []string `json:"roles"`
	Scopes  []string `json:"scopes"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
