package server

import (
	"time"

	"github.com/devopsevgeny/FinalProject/internal/auth"
	"github.com/devopsevgeny/FinalProject/internal/crypto"
)

type SeedUser struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

type Config struct {
	Addr string
	DSN  string

	// MasterKeyHex is the 32-byte data key in hex; the process must not
	// start without it.
	MasterKeyHex string
	Alg          string

	AuthType      auth.Mode
	APIKey        string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	SystemActorID string
	SeedUsers     []SeedUser
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DSN == "" {
		c.DSN = "file:confmgr.db"
	}
	if c.Alg == "" {
		c.Alg = crypto.AlgAESGCM
	}
	if c.AuthType == "" {
		c.AuthType = auth.ModeAPIKey
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "confmgr"
	}
	if c.JWTAudience == "" {
		c.JWTAudience = "confmgr"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.SystemActorID == "" {
		c.SystemActorID = "00000000-0000-0000-0000-000000000001"
	}
}
