package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// PutConfig writes a new config version for path, or returns the current one
// unchanged when its checksum already matches (idempotent short-circuit).
// Version allocation and the current-pointer flip happen together inside one
// transaction guarded by the per-item lock.
func (s *Store) PutConfig(ctx context.Context, path string, value any, createdBy string) (Entry, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return Entry{}, err
	}
	canon, err := CanonicalJSON(value)
	if err != nil {
		return Entry{}, fmt.Errorf("store: canonicalize value: %w", err)
	}
	sum := sha256.Sum256(canon)

	release, err := s.locks.acquire(ctx, "config/"+path, s.lockWait)
	if err != nil {
		return Entry{}, err
	}
	defer release()

	var out Entry
	err = s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		item, err := ensureConfigItem(ctx, tx, path, createdBy)
		if err != nil {
			return err
		}

		cur := new(configVersion)
		err = tx.NewSelect().Model(cur).
			Where("item_id = ? AND is_current", item.ID).
			Scan(ctx)
		switch {
		case err == nil:
			if bytes.Equal(cur.Checksum, sum[:]) {
				// Same canonical value: no new version, no number consumed.
				out = configEntry(path, cur)
				return nil
			}
		case noRows(err):
			// First version for this item.
		default:
			return err
		}

		next, err := nextConfigVersion(ctx, tx, item.ID)
		if err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model((*configVersion)(nil)).
			Set("is_current = ?", false).
			Where("item_id = ? AND is_current", item.ID).
			Exec(ctx); err != nil {
			return err
		}

		rec := &configVersion{
			ItemID:    item.ID,
			Version:   next,
			IsCurrent: true,
			ValueJSON: canon,
			Checksum:  sum[:],
			CreatedBy: createdBy,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}
		out = configEntry(path, rec)
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

// GetConfig returns the current version for path.
func (s *Store) GetConfig(ctx context.Context, path string) (Entry, error) {
	return s.getConfig(ctx, path, 0)
}

// GetConfigVersion returns one explicit version for path.
func (s *Store) GetConfigVersion(ctx context.Context, path string, version int64) (Entry, error) {
	return s.getConfig(ctx, path, version)
}

func (s *Store) getConfig(ctx context.Context, path string, version int64) (Entry, error) {
	path, err := NormalizePath(path)
	if err != nil {
		return Entry{}, err
	}
	rec := new(configVersion)
	q := s.db.NewSelect().Model(rec).
		Join("JOIN config_items AS ci ON ci.id = cv.item_id").
		Where("ci.path = ?", path)
	if version > 0 {
		q = q.Where("cv.version = ?", version)
	} else {
		q = q.Where("cv.is_current")
	}
	if err := q.Scan(ctx); err != nil {
		if noRows(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return configEntry(path, rec), nil
}

func ensureConfigItem(ctx context.Context, tx bun.Tx, path, createdBy string) (*configItem, error) {
	item := &configItem{Path: path, CreatedBy: createdBy, CreatedAt: time.Now().UTC()}
	if _, err := tx.NewInsert().Model(item).
		On("CONFLICT (path) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, err
	}
	// Re-read: the insert is a no-op when the item already exists.
	item = new(configItem)
	if err := tx.NewSelect().Model(item).Where("path = ?", path).Scan(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

func nextConfigVersion(ctx context.Context, tx bun.Tx, itemID int64) (int64, error) {
	var maxVer int64
	err := tx.NewSelect().Model((*configVersion)(nil)).
		ColumnExpr("coalesce(max(version), 0)").
		Where("item_id = ?", itemID).
		Scan(ctx, &maxVer)
	if err != nil {
		return 0, err
	}
	return maxVer + 1, nil
}

func configEntry(path string, rec *configVersion) Entry {
	return Entry{
		Path:      path,
		Version:   rec.Version,
		Value:     append([]byte(nil), rec.ValueJSON...),
		CreatedAt: rec.CreatedAt,
	}
}
