package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSigner mints the short-lived HS256 tokens handed out by /auth/login.
// The same signing key verifies them in TokenResolver.
type JWTSigner struct {
	Key []byte
	Iss string
	Aud string
	TTL time.Duration
}

func NewJWTSigner(key []byte, iss, aud string, ttl time.Duration) *JWTSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTSigner{Key: key, Iss: iss, Aud: aud, TTL: ttl}
}

// IssueToken signs a token carrying the canonical "roles" claim plus the
// derived "scope" claim (space-delimited, OAuth2 style).
func (s *JWTSigner) IssueToken(sub, username, email string, roles []string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.TTL)

	claims := jwt.MapClaims{
		"iss":      s.Iss,
		"aud":      s.Aud,
		"sub":      sub,
		"username": username,
		"email":    email,
		"roles":    roles,
		"scope":    ScopeString(roles),
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
		"jti":      randomJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(s.Key)
	return ss, exp, err
}

func randomJTI() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
