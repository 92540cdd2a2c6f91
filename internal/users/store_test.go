package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupUsers(t *testing.T) *BunStore {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	sqldb, err := sql.Open(sqliteshim.DriverName(), fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	s := NewBunStore(db)
	// Lighter argon parameters keep the test fast.
	s.argon = ArgonParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestAddAndAuthenticate(t *testing.T) {
	s := setupUsers(t)
	ctx := context.Background()

	u, err := s.Add(ctx, "alice", "Alice@Example.com", "correct horse", []string{"CONFIG_ADMIN"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if u.ID == "" {
		t.Fatal("missing generated id")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	if _, err := s.Add(ctx, "alice", "", "other", nil); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate username: got %v", err)
	}

	got, err := s.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "CONFIG_ADMIN" {
		t.Fatalf("roles = %v", got.Roles)
	}

	if _, err := s.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
}

func TestGrantDedupes(t *testing.T) {
	s := setupUsers(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, "bob", "", "pw-123456", []string{"CONFIG_VIEWER"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	u, err := s.Grant(ctx, "bob", []string{"CONFIG_VIEWER", "SECRET_ADMIN", ""})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	want := []string{"CONFIG_VIEWER", "SECRET_ADMIN"}
	if len(u.Roles) != len(want) {
		t.Fatalf("roles = %v, want %v", u.Roles, want)
	}
	for i := range want {
		if u.Roles[i] != want[i] {
			t.Fatalf("roles = %v, want %v", u.Roles, want)
		}
	}
	if _, err := s.Grant(ctx, "ghost", []string{"X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("grant to missing user: got %v", err)
	}
}

func TestListAndLastLogin(t *testing.T) {
	s := setupUsers(t)
	ctx := context.Background()
	for _, name := range []string{"zed", "amy"} {
		if _, err := s.Add(ctx, name, "", "pw-123456", nil); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Username != "amy" || list[1].Username != "zed" {
		t.Fatalf("list = %+v", list)
	}
	if err := s.TouchLastLogin(ctx, "amy"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	u, err := s.FindByUsername(ctx, "amy")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.LastLogin.IsZero() {
		t.Fatal("last_login not set")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	p := ArgonParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}
	h, err := HashPassword(p, "s3cret-pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(h, "argon2id$") {
		t.Fatalf("unexpected encoding: %s", h)
	}
	ok, err := VerifyPassword("s3cret-pw", h)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("not-it", h)
	if err != nil || ok {
		t.Fatalf("wrong password accepted: ok=%v err=%v", ok, err)
	}
	if _, err := VerifyPassword("x", "bcrypt$nope"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
