// Package flagsqlite is the embedded flag store used by the terminal client.
package flagsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/junker098/universe-app/internal/model"
	_ "github.com/mattn/go-sqlite3" // Import go-sqlite3 library
)

const schema = `
CREATE TABLE IF NOT EXISTS photo_flags (
	photo_id TEXT PRIMARY KEY,
	marked BOOLEAN NOT NULL DEFAULT 0,
	saved_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS purge_log (
	batch_id TEXT PRIMARY KEY,
	deleted INTEGER NOT NULL,
	photo_ids TEXT NOT NULL,
	source TEXT NOT NULL,
	purged_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purge_log_purged_at ON purge_log(purged_at);
`

type SqliteRepo struct {
	db *sql.DB
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string) (*SqliteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// один писатель - sqlite иначе ловит SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return New(db), nil
}

// New wraps an already opened database; the schema is assumed to exist.
func New(db *sql.DB) *SqliteRepo {
	return &SqliteRepo{db: db}
}

func (r *SqliteRepo) Close() error {
	return r.db.Close()
}

func (r *SqliteRepo) LoadFlags(ctx context.Context) (model.Flags, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT photo_id, marked FROM photo_flags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags model.Flags
	for rows.Next() {
		var id string
		var marked bool
		if err := rows.Scan(&id, &marked); err != nil {
			return nil, err
		}
		if flags == nil {
			flags = make(model.Flags)
		}
		flags[id] = marked
	}

	return flags, rows.Err()
}

func (r *SqliteRepo) SaveFlags(ctx context.Context, flags model.Flags) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Printf("Failed to rollback flags tx: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM photo_flags`); err != nil {
		return fmt.Errorf("clear photo_flags: %w", err)
	}

	if len(flags) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO photo_flags(photo_id, marked, saved_at) VALUES(?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		ids := make([]string, 0, len(flags))
		for id := range flags {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id, flags[id], now); err != nil {
				return fmt.Errorf("insert flag %q: %w", id, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit flags: %w", err)
	}
	return nil
}

func (r *SqliteRepo) RecordPurge(ctx context.Context, rec *model.PurgeRecord) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO purge_log(batch_id, deleted, photo_ids, source, purged_at) VALUES(?, ?, ?, ?, ?)`,
		rec.BatchID, rec.Deleted, rec.PhotoIDs, rec.Source, rec.PurgedAt)
	return err
}

func (r *SqliteRepo) ListPurges(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
	query := fmt.Sprintf(`SELECT batch_id, deleted, photo_ids, source, purged_at
	FROM purge_log
	ORDER BY purged_at %s
	LIMIT ? OFFSET ?`, req.Order)

	rows, err := r.db.QueryContext(ctx, query, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.PurgeRecord, 0, req.Limit)
	for rows.Next() {
		var rec model.PurgeRecord
		if err := rows.Scan(&rec.BatchID, &rec.Deleted, &rec.PhotoIDs, &rec.Source, &rec.PurgedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
