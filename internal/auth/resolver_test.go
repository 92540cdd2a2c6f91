package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := tok.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return ss
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": "confmgr",
		"aud": "confmgr",
		"sub": "11111111-1111-1111-1111-111111111111",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

func newTestTokenResolver(t *testing.T) *TokenResolver {
	t.Helper()
	r, err := NewTokenResolver(testSigningKey, "confmgr", "confmgr")
	if err != nil {
		t.Fatalf("NewTokenResolver: %v", err)
	}
	return r
}

func TestStaticKeyResolver(t *testing.T) {
	if _, err := NewStaticKeyResolver(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	r, err := NewStaticKeyResolver("s3cret")
	if err != nil {
		t.Fatalf("NewStaticKeyResolver: %v", err)
	}
	if r.Mode() != ModeAPIKey {
		t.Fatalf("mode = %v", r.Mode())
	}
	if _, err := r.Resolve("wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	p, err := r.Resolve("s3cret")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.ID != "api-key" || len(p.Roles) != 0 || len(p.Scopes) != 0 {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestTokenResolverValid(t *testing.T) {
	r := newTestTokenResolver(t)
	claims := baseClaims(time.Now())
	claims["preferred_username"] = "alice"
	claims["roles"] = []string{"CONFIG_ADMIN"}
	claims["scope"] = "config.read config.write"

	p, err := r.Resolve(signToken(t, testSigningKey, claims))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.ID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("id = %q", p.ID)
	}
	if p.Subject != "alice" {
		t.Fatalf("subject = %q", p.Subject)
	}
	if p.Issuer != "confmgr" {
		t.Fatalf("issuer = %q", p.Issuer)
	}
	if len(p.Roles) != 1 || p.Roles[0] != "CONFIG_ADMIN" {
		t.Fatalf("roles = %v", p.Roles)
	}
	if len(p.Scopes) != 2 {
		t.Fatalf("scopes = %v", p.Scopes)
	}
}

func TestTokenResolverFailureCategories(t *testing.T) {
	r := newTestTokenResolver(t)
	now := time.Now()

	t.Run("expired", func(t *testing.T) {
		claims := baseClaims(now)
		claims["iat"] = now.Add(-2 * time.Hour).Unix()
		claims["exp"] = now.Add(-time.Hour).Unix()
		_, err := r.Resolve(signToken(t, testSigningKey, claims))
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := r.Resolve(signToken(t, "other-key", baseClaims(now)))
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("expected ErrBadSignature, got %v", err)
		}
	})

	t.Run("bad issuer", func(t *testing.T) {
		claims := baseClaims(now)
		claims["iss"] = "intruder"
		_, err := r.Resolve(signToken(t, testSigningKey, claims))
		if !errors.Is(err, ErrBadIssuer) {
			t.Fatalf("expected ErrBadIssuer, got %v", err)
		}
	})

	t.Run("bad audience", func(t *testing.T) {
		claims := baseClaims(now)
		claims["aud"] = "someone-else"
		_, err := r.Resolve(signToken(t, testSigningKey, claims))
		if !errors.Is(err, ErrBadAudience) {
			t.Fatalf("expected ErrBadAudience, got %v", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := r.Resolve("not.a.token")
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("missing sub", func(t *testing.T) {
		claims := baseClaims(now)
		delete(claims, "sub")
		_, err := r.Resolve(signToken(t, testSigningKey, claims))
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("all categories are unauthorized", func(t *testing.T) {
		for _, cat := range []error{ErrExpired, ErrBadSignature, ErrBadIssuer, ErrBadAudience, ErrMalformed} {
			if !errors.Is(cat, ErrUnauthorized) {
				t.Fatalf("%v does not wrap ErrUnauthorized", cat)
			}
		}
	})
}

func TestTokenResolverLeeway(t *testing.T) {
	r := newTestTokenResolver(t)
	now := time.Now()
	claims := baseClaims(now)
	claims["exp"] = now.Add(-10 * time.Second).Unix() // inside the 30s leeway
	if _, err := r.Resolve(signToken(t, testSigningKey, claims)); err != nil {
		t.Fatalf("expected leeway to admit token, got %v", err)
	}
}

func TestTokenResolverNotBefore(t *testing.T) {
	r := newTestTokenResolver(t)
	now := time.Now()
	claims := baseClaims(now)
	claims["nbf"] = now.Add(time.Hour).Unix()
	if _, err := r.Resolve(signToken(t, testSigningKey, claims)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected time-window failure, got %v", err)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	signer := NewJWTSigner([]byte(testSigningKey), "confmgr", "confmgr", 15*time.Minute)
	tok, exp, err := signer.IssueToken("u-1", "alice", "alice@example.com", []string{"CONFIG_ADMIN"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry not in the future")
	}
	r := newTestTokenResolver(t)
	p, err := r.Resolve(tok)
	if err != nil {
		t.Fatalf("resolve minted token: %v", err)
	}
	if p.ID != "u-1" || p.Subject != "alice" {
		t.Fatalf("unexpected principal %+v", p)
	}
	if len(p.Roles) != 1 || p.Roles[0] != "CONFIG_ADMIN" {
		t.Fatalf("roles = %v", p.Roles)
	}
	if len(p.Scopes) != 2 { // config.read config.write
		t.Fatalf("scopes = %v", p.Scopes)
	}
}
