package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver turns a raw credential string into a Principal. The concrete
// resolver is picked once at startup from configuration; both are pure
// validation functions with no per-request state.
type Resolver interface {
	Mode() Mode
	Resolve(credential string) (*Principal, error)
}

// ---------- static key mode ----------

// StaticKeyResolver compares the presented key against a single configured
// value. The resulting principal carries a fixed identity and no roles; in
// this mode possession of the key is the whole authorization decision.
type StaticKeyResolver struct {
	key string
}

func NewStaticKeyResolver(key string) (*StaticKeyResolver, error) {
	if key == "" {
		return nil, errors.New("auth: API key not configured")
	}
	return &StaticKeyResolver{key: key}, nil
}

func (r *StaticKeyResolver) Mode() Mode { return ModeAPIKey }

func (r *StaticKeyResolver) Resolve(credential string) (*Principal, error) {
	if subtle.ConstantTimeCompare([]byte(credential), []byte(r.key)) != 1 {
		return nil, ErrUnauthorized
	}
	return &Principal{
		ID:      "api-key",
		Subject: "api-key",
		Issuer:  "local",
		Roles:   []string{},
		Scopes:  []string{},
	}, nil
}

// ---------- bearer token mode ----------

const tokenLeeway = 30 * time.Second

// TokenResolver verifies compact HS256 tokens: signature, issuer, audience,
// expiry (with leeway), not-before, and presence of sub/iat/exp. Failures
// come back as one of the coarse categories; the exact reason is for logs,
// not for the wire.
type TokenResolver struct {
	key []byte
	iss string
	aud string
	now func() time.Time
}

func NewTokenResolver(signingKey, issuer, audience string) (*TokenResolver, error) {
	if signingKey == "" {
		return nil, errors.New("auth: JWT signing key not configured")
	}
	return &TokenResolver{
		key: []byte(signingKey),
		iss: issuer,
		aud: audience,
		now: time.Now,
	}, nil
}

func (r *TokenResolver) Mode() Mode { return ModeBearer }

func (r *TokenResolver) Resolve(credential string) (*Principal, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return r.key, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(r.now),
	}
	if r.iss != "" {
		opts = append(opts, jwt.WithIssuer(r.iss))
	}
	if r.aud != "" {
		opts = append(opts, jwt.WithAudience(r.aud))
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(credential, claims, keyFunc, opts...)
	if err != nil {
		return nil, categorize(err)
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMalformed
	}
	if _, ok := claims["iat"]; !ok {
		return nil, ErrMalformed
	}

	subject := sub
	for _, k := range []string{"preferred_username", "username", "name", "email"} {
		if v, ok := claims[k].(string); ok && v != "" {
			subject = v
			break
		}
	}
	iss, _ := claims["iss"].(string)

	return &Principal{
		ID:      sub,
		Subject: subject,
		Issuer:  iss,
		Roles:   ExtractRoles(claims),
		Scopes:  ExtractScopes(claims),
	}, nil
}

func categorize(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		// Both ends of the validity window report as expired.
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrBadIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrBadAudience
	default:
		return ErrMalformed
	}
}
