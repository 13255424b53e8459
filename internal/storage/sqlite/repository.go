// Package sqlite persists the snapshot in a SQLite database, one row per
// store key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"subtrack/internal/storage"

	_ "modernc.org/sqlite"
)

const (
	selectSnapshot = `SELECT payload FROM snapshots WHERE store_key = ?`
	upsertSnapshot = `INSERT INTO snapshots (store_key, version, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(store_key) DO UPDATE SET
    version = excluded.version,
    payload = excluded.payload,
    updated_at = excluded.updated_at`
)

type Repository struct {
	db  *sql.DB
	key string
}

// NewRepository opens (creating if needed) the database at dbPath and runs
// the embedded migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, key: storage.StoreKey}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements storage.Persister.
func (r *Repository) Load(ctx context.Context) (storage.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, selectSnapshot, r.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("select snapshot: %w", err)
	}

	snap, err := storage.Decode([]byte(payload))
	if err != nil {
		return storage.Snapshot{}, err
	}
	slog.InfoContext(ctx, "Snapshot loaded from SQLite",
		"store_key", r.key,
		"subscriptions", len(snap.Subscriptions))
	return snap, nil
}

// Save implements storage.Persister.
func (r *Repository) Save(ctx context.Context, snap storage.Snapshot) error {
	payload, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertSnapshot,
		r.key, storage.SnapshotVersion, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"store_key", r.key,
		"subscriptions", len(snap.Subscriptions),
		"bytes", len(payload))
	return nil
}
