package store

import (
	"time"

	"github.com/uptrace/bun"
)

type configItem struct {
	bun.BaseModel `bun:"table:config_items,alias:ci"`

	ID        int64     `bun:",pk,autoincrement"`
	Path      string    `bun:",notnull,unique"`
	CreatedBy string    `bun:",notnull"`
	CreatedAt time.Time `bun:",notnull"`
}

type configVersion struct {
	bun.BaseModel `bun:"table:config_versions,alias:cv"`

	ID        int64     `bun:",pk,autoincrement"`
	ItemID    int64     `bun:",notnull,unique:cfg_item_version"`
	Version   int64     `bun:",notnull,unique:cfg_item_version"`
	IsCurrent bool      `bun:",notnull"`
	ValueJSON []byte    `bun:",notnull"`
	Checksum  []byte    `bun:",notnull"`
	CreatedBy string    `bun:",notnull"`
	CreatedAt time.Time `bun:",notnull"`
}

type secretItem struct {
	bun.BaseModel `bun:"table:secret_items,alias:si"`

	ID        int64     `bun:",pk,autoincrement"`
	Path      string    `bun:",notnull,unique"`
	CreatedBy string    `bun:",notnull"`
	CreatedAt time.Time `bun:",notnull"`
}

type secretVersion struct {
	bun.BaseModel `bun:"table:secret_versions,alias:sv"`

	ID         int64     `bun:",pk,autoincrement"`
	ItemID     int64     `bun:",notnull,unique:sec_item_version"`
	Version    int64     `bun:",notnull,unique:sec_item_version"`
	IsCurrent  bool      `bun:",notnull"`
	Ciphertext []byte    `bun:",notnull"`
	Nonce      []byte    `bun:",notnull"`
	Alg        string    `bun:",notnull"`
	CreatedBy  string    `bun:",notnull"`
	CreatedAt  time.Time `bun:",notnull"`
}
