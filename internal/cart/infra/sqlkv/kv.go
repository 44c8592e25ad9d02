// Package sqlkv stores cart snapshots in a SQL table keyed by snapshot key.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Dialect struct {
	Name   string
	create string
	get    string
	upsert string
}

var SQLite = Dialect{
	Name: "sqlite",
	create: `CREATE TABLE IF NOT EXISTS cart_snapshots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`,
	get: `SELECT value FROM cart_snapshots WHERE key = ?`,
	upsert: `INSERT INTO cart_snapshots (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
}

var Postgres = Dialect{
	Name: "postgres",
	create: `CREATE TABLE IF NOT EXISTS cart_snapshots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at BIGINT NOT NULL
)`,
	get: `SELECT value FROM cart_snapshots WHERE key = $1`,
	upsert: `INSERT INTO cart_snapshots (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
}

type KV struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) *KV {
	return &KV{db: db, dialect: dialect, now: time.Now}
}

// Migrate creates the snapshot table if it does not exist.
func (k *KV) Migrate(ctx context.Context) error {
	if _, err := k.db.ExecContext(ctx, k.dialect.create); err != nil {
		return fmt.Errorf("%s: create cart_snapshots: %w", k.dialect.Name, err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.db.QueryRowContext(ctx, k.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.ExecContext(ctx, k.dialect.upsert, key, value, k.now().UnixNano())
	return err
}
