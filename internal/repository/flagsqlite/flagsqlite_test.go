package flagsqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/junker098/universe-app/internal/model"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SqliteRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

func TestSqliteRepo_SaveFlags_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM photo_flags`).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(`INSERT INTO photo_flags`)
	prep.ExpectExec().WithArgs("a", false, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("z", true, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveFlags(context.Background(), model.Flags{"z": true, "a": false}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqliteRepo_SaveFlags_Rollback(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM photo_flags`).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	require.Error(t, repo.SaveFlags(context.Background(), model.Flags{"a": true}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSqliteRepo_LoadFlags_Error(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT photo_id, marked FROM photo_flags`).WillReturnError(errors.New("no such table"))

	_, err := repo.LoadFlags(context.Background())
	require.Error(t, err)
}

func TestSqliteRepo_RecordPurge_OK(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rec := &model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 1, PhotoIDs: model.StringSlice{"a"}, Source: "fs", PurgedAt: time.Now().UTC()}
	mock.ExpectExec(`INSERT OR IGNORE INTO purge_log`).
		WithArgs(rec.BatchID, rec.Deleted, sqlmock.AnyArg(), rec.Source, rec.PurgedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.RecordPurge(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Настоящий файл: снимок флагов и журнал переживают переоткрытие базы.
func TestSqliteRepo_OpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trash.db")
	ctx := context.Background()

	repo, err := Open(path)
	require.NoError(t, err)

	flags, err := repo.LoadFlags(ctx)
	require.NoError(t, err)
	require.Nil(t, flags)

	require.NoError(t, repo.SaveFlags(ctx, model.Flags{"a": true, "b": false}))
	require.NoError(t, repo.SaveFlags(ctx, model.Flags{"b": true}))

	first := &model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 1, PhotoIDs: model.StringSlice{"a"}, Source: "fs", PurgedAt: time.Now().UTC().Add(-time.Hour)}
	second := &model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 2, PhotoIDs: model.StringSlice{"c", "d"}, Source: "fs", PurgedAt: time.Now().UTC()}
	require.NoError(t, repo.RecordPurge(ctx, first))
	require.NoError(t, repo.RecordPurge(ctx, second))
	require.NoError(t, repo.RecordPurge(ctx, first)) // повтор из очереди
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()

	flags, err = repo.LoadFlags(ctx)
	require.NoError(t, err)
	require.Equal(t, model.Flags{"b": true}, flags)

	list, err := repo.ListPurges(ctx, &model.ListRequest{Page: 1, Limit: 10, Order: "DESC"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.BatchID, list[0].BatchID)
	require.Equal(t, model.StringSlice{"c", "d"}, list[0].PhotoIDs)
}
