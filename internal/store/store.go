// Package store implements the versioned item protocol: append-only version
// history per path, an atomic current-version pointer, checksum-based
// idempotency for config writes and envelope encryption for secret payloads.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/devopsevgeny/FinalProject/internal/crypto"
)

var (
	ErrNotFound    = errors.New("store: not found")
	ErrInvalidPath = errors.New("store: invalid path")
	ErrContention  = errors.New("store: write contention, retry")
)

const defaultLockWait = 5 * time.Second

// Entry is one materialized item version as returned to callers. For
// secrets, Value holds the decrypted payload.
type Entry struct {
	Path      string          `json:"path"`
	Version   int64           `json:"version"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store owns all item/version lifecycle transitions. It serializes writers
// per item and never blocks on anything but the database.
type Store struct {
	db       *bun.DB
	engine   *crypto.Engine
	locks    *keyedLock
	lockWait time.Duration
}

func New(db *bun.DB, engine *crypto.Engine) *Store {
	return &Store{
		db:       db,
		engine:   engine,
		locks:    newKeyedLock(),
		lockWait: defaultLockWait,
	}
}

// Init creates the item/version tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	models := []any{
		(*configItem)(nil), (*configVersion)(nil),
		(*secretItem)(nil), (*secretVersion)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Ping proves database connectivity, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) runInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
