// Package flagpostgres keeps review flags and the purge log in PostgreSQL.
package flagpostgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/junker098/universe-app/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// LoadFlags returns nil when nothing has been saved yet.
func (p PostgresRepo) LoadFlags(ctx context.Context) (model.Flags, error) {
	query := `SELECT photo_id, marked FROM photo_flags`

	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

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

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return flags, nil
}

// SaveFlags replaces the whole snapshot in one transaction.
func (p PostgresRepo) SaveFlags(ctx context.Context, flags model.Flags) (err error) {
	tx, err := p.DB.Master.BeginTx(ctx, nil)
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
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO photo_flags (photo_id, marked, saved_at) VALUES ($1, $2, now())`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, id := range sortedIDs(flags) {
			if _, err := stmt.ExecContext(ctx, id, flags[id]); err != nil {
				return fmt.Errorf("insert flag %q: %w", id, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit flags: %w", err)
	}
	return nil
}

func (p PostgresRepo) RecordPurge(ctx context.Context, rec *model.PurgeRecord) error {
	query := `INSERT INTO purge_log (batch_id, deleted, photo_ids, source, purged_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (batch_id) DO NOTHING`
	return p.DB.QueryRowContext(ctx, query, rec.BatchID, rec.Deleted, rec.PhotoIDs, rec.Source, rec.PurgedAt).Err()
}

func (p PostgresRepo) ListPurges(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
	query := fmt.Sprintf(`SELECT batch_id, deleted, photo_ids, source, purged_at
	FROM purge_log
	ORDER BY purged_at %s
	LIMIT $1
	OFFSET $2`, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	records := make([]model.PurgeRecord, 0, req.Limit)
	for rows.Next() {
		var rec model.PurgeRecord
		if err := rows.Scan(&rec.BatchID,
			&rec.Deleted,
			&rec.PhotoIDs,
			&rec.Source,
			&rec.PurgedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return records, nil
}

func sortedIDs(flags model.Flags) []string {
	ids := make([]string, 0, len(flags))
	for id := range flags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
