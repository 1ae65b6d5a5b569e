package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.KVStore = (*KVRepo)(nil)

// KVRepo is the SQLite implementation of the KVStore port. Each key is one
// row; Set replaces the whole value in a single statement.
type KVRepo struct {
	db *DB
}

// NewKVRepo creates a new KVRepo backed by the given DB.
func NewKVRepo(db *DB) *KVRepo {
	return &KVRepo{db: db}
}

const (
	selectValueQuery = `SELECT value FROM kv_store WHERE key = ?`

	upsertValueQuery = `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
)

// Get returns the value stored under key. ok is false if the key is absent.
func (r *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.Reader.QueryRowContext(ctx, selectValueQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores or replaces the value under key.
func (r *KVRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Writer.ExecContext(ctx, upsertValueQuery, key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set kv %q: %w", key, err)
	}
	return nil
}

// Update reads and rewrites the value under key in one writer transaction.
// The DSN opens transactions with BEGIN IMMEDIATE, so the write lock is held
// from the read onward and another process cannot commit in between.
func (r *KVRepo) Update(ctx context.Context, key string, fn func(current string, ok bool) (string, error)) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	ok := true
	err = tx.QueryRowContext(ctx, selectValueQuery, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		ok = false
	} else if err != nil {
		return fmt.Errorf("read kv %q: %w", key, err)
	}

	next, err := fn(current, ok)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, upsertValueQuery, key, next, formatTime(time.Now())); err != nil {
		return fmt.Errorf("write kv %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit kv %q: %w", key, err)
	}
	return nil
}
