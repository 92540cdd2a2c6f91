// Package users backs the login endpoint: accounts, argon2id password
// hashes and role grants. Principals for request authorization come from
// tokens, not from this package; it only decides who may obtain one.
package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound = errors.New("users: not found")
	ErrExists   = errors.New("users: already exists")
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"is_active"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// Store is the account storage contract.
type Store interface {
	Add(ctx context.Context, username, email, password string, roles []string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Grant(ctx context.Context, username string, roles []string) (*User, error)
	TouchLastLogin(ctx context.Context, username string) error
}

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:",pk"`
	Username  string    `bun:",notnull,unique"`
	Email     string    `bun:",nullzero"`
	PassHash  string    `bun:",notnull"`
	Roles     []string  `bun:",type:jsonb"`
	IsActive  bool      `bun:",notnull"`
	LastLogin time.Time `bun:",nullzero"`
	CreatedAt time.Time `bun:",notnull"`
}

// BunStore keeps accounts in the same relational database as everything
// else.
type BunStore struct {
	db    *bun.DB
	argon ArgonParams
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, argon: DefaultArgon}
}

func (s *BunStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*userRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Add(ctx context.Context, username, email, password string, roles []string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("users: empty username")
	}
	hash, err := HashPassword(s.argon, password)
	if err != nil {
		return nil, err
	}
	rec := &userRecord{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		PassHash:  hash,
		Roles:     append([]string(nil), roles...),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (username) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrExists
	}
	return toUser(rec), nil
}

func (s *BunStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	rec, err := s.findRecord(ctx, username)
	if err != nil {
		return nil, err
	}
	return toUser(rec), nil
}

// Authenticate verifies the password for an active account. The caller gets
// ErrNotFound for a missing user, an inactive user and a wrong password
// alike; distinguishing them is the attacker's job, not ours.
func (s *BunStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	rec, err := s.findRecord(ctx, username)
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return nil, ErrNotFound
	}
	ok, err := VerifyPassword(password, rec.PassHash)
	if err != nil || !ok {
		return nil, ErrNotFound
	}
	return toUser(rec), nil
}

func (s *BunStore) List(ctx context.Context) ([]User, error) {
	var recs []userRecord
	if err := s.db.NewSelect().Model(&recs).OrderExpr("username ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]User, 0, len(recs))
	for i := range recs {
		out = append(out, *toUser(&recs[i]))
	}
	return out, nil
}

// Grant adds roles to an account, deduplicating against existing grants.
func (s *BunStore) Grant(ctx context.Context, username string, roles []string) (*User, error) {
	rec, err := s.findRecord(ctx, username)
	if err != nil {
		return nil, err
	}
	have := map[string]bool{}
	for _, r := range rec.Roles {
		have[r] = true
	}
	for _, r := range roles {
		if r != "" && !have[r] {
			have[r] = true
			rec.Roles = append(rec.Roles, r)
		}
	}
	if _, err := s.db.NewUpdate().Model(rec).
		Column("roles").
		Where("id = ?", rec.ID).
		Exec(ctx); err != nil {
		return nil, err
	}
	return toUser(rec), nil
}

func (s *BunStore) TouchLastLogin(ctx context.Context, username string) error {
	_, err := s.db.NewUpdate().Model((*userRecord)(nil)).
		Set("last_login = ?", time.Now().UTC()).
		Where("username = ?", username).
		Exec(ctx)
	return err
}

func (s *BunStore) findRecord(ctx context.Context, username string) (*userRecord, error) {
	rec := new(userRecord)
	err := s.db.NewSelect().Model(rec).Where("username = ?", username).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func toUser(rec *userRecord) *User {
	roles := rec.Roles
	if roles == nil {
		roles = []string{}
	}
	return &User{
		ID:        rec.ID,
		Username:  rec.Username,
		Email:     rec.Email,
		Roles:     roles,
		IsActive:  rec.IsActive,
		LastLogin: rec.LastLogin,
	}
}
