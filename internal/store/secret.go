package store

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/devopsevgeny/FinalProject/internal/crypto"
)

// PutSecret writes a new secret version for path. There is no checksum
// short-circuit: identical plaintexts still get a fresh nonce, a fresh
// ciphertext and a new version number. The payload is sealed only after the
// version number is allocated, so the AAD binds the final (path, version).
func (s *Store) PutSecret(ctx context.Context, path string, value any, createdBy string) (Entry, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return Entry{}, err
	}
	plaintext, err := CanonicalJSON(value)
	if err != nil {
		return Entry{}, fmt.Errorf("store: canonicalize value: %w", err)
	}
	defer crypto.Zero(plaintext)

	release, err := s.locks.acquire(ctx, "secret/"+path, s.lockWait)
	if err != nil {
		return Entry{}, err
	}
	defer release()

	var out Entry
	err = s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		item, err := ensureSecretItem(ctx, tx, path, createdBy)
		if err != nil {
			return err
		}

		next, err := nextSecretVersion(ctx, tx, item.ID)
		if err != nil {
			return err
		}

		nonce, ct, err := s.engine.Seal(plaintext, crypto.AAD(path, next))
		if err != nil {
			return err
		}

		// Flip the old current off and insert the new one in the same
		// transaction: both commit or neither does.
		if _, err := tx.NewUpdate().Model((*secretVersion)(nil)).
			Set("is_current = ?", false).
			Where("item_id = ? AND is_current", item.ID).
			Exec(ctx); err != nil {
			return err
		}

		rec := &secretVersion{
			ItemID:     item.ID,
			Version:    next,
			IsCurrent:  true,
			Ciphertext: ct,
			Nonce:      nonce,
			Alg:        s.engine.Alg(),
			CreatedBy:  createdBy,
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}
		out = Entry{
			Path:      path,
			Version:   rec.Version,
			Value:     append([]byte(nil), plaintext...),
			CreatedAt: rec.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

// GetSecret returns the decrypted current version for path.
func (s *Store) GetSecret(ctx context.Context, path string) (Entry, error) {
	return s.getSecret(ctx, path, 0)
}

// GetSecretVersion returns one explicit decrypted version for path.
func (s *Store) GetSecretVersion(ctx context.Context, path string, version int64) (Entry, error) {
	return s.getSecret(ctx, path, version)
}

func (s *Store) getSecret(ctx context.Context, path string, version int64) (Entry, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return Entry{}, err
	}
	rec := new(secretVersion)
	q := s.db.NewSelect().Model(rec).
		Join("JOIN secret_items AS si ON si.id = sv.item_id").
		Where("si.path = ?", path)
	if version > 0 {
		q = q.Where("sv.version = ?", version)
	} else {
		q = q.Where("sv.is_current")
	}
	if err := q.Scan(ctx); err != nil {
		if noRows(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}

	// The AAD uses the fetched row's own version number, never a
	// caller-supplied one; that is what makes the binding meaningful.
	plaintext, err := s.engine.Open(rec.Nonce, rec.Ciphertext, crypto.AAD(path, rec.Version), rec.Alg)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Path:      path,
		Version:   rec.Version,
		Value:     plaintext,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func ensureSecretItem(ctx context.Context, tx bun.Tx, path, createdBy string) (*secretItem, error) {
	item := &secretItem{Path: path, CreatedBy: createdBy, CreatedAt: time.Now().UTC()}
	if _, err := tx.NewInsert().Model(item).
		On("CONFLICT (path) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, err
	}
	item = new(secretItem)
	if err := tx.NewSelect().Model(item).Where("path = ?", path).Scan(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

func nextSecretVersion(ctx context.Context, tx bun.Tx, itemID int64) (int64, error) {
	var maxVer int64
	err := tx.NewSelect().Model((*secretVersion)(nil)).
		ColumnExpr("coalesce(max(version), 0)").
		Where("item_id = ?", itemID).
		Scan(ctx, &maxVer)
	if err != nil {
		return 0, err
	}
	return maxVer + 1, nil
}
