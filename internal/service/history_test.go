package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/junker098/universe-app/internal/model"
	"github.com/stretchr/testify/require"
)

func TestHistoryService_GetList_OK(t *testing.T) {
	repo := &mockPurgeLog{
		listFn: func(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
			require.Equal(t, 1, req.Page)
			require.Equal(t, 30, req.Limit)
			require.Equal(t, "DESC", req.Order)
			return []model.PurgeRecord{{Deleted: 2}}, nil
		},
	}

	res, err := NewHistoryService(repo).GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestHistoryService_GetList_RepoError(t *testing.T) {
	repo := &mockPurgeLog{
		listFn: func(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
			return nil, errors.New("db down")
		},
	}

	_, err := NewHistoryService(repo).GetList(context.Background(), &model.ListRequest{})
	require.ErrorIs(t, err, model.ErrCommon500)
}

func TestHistoryService_Record(t *testing.T) {
	valid := func() *model.PurgeRecord {
		return &model.PurgeRecord{
			BatchID:  uuid.New().String(),
			Deleted:  2,
			PhotoIDs: model.StringSlice{"a", "b"},
			Source:   "fs",
			PurgedAt: time.Now().UTC(),
		}
	}

	tests := []struct {
		name    string
		rec     *model.PurgeRecord
		repoErr error
		wantErr error
	}{
		{name: "OK", rec: valid()},
		{name: "nil record", rec: nil, wantErr: model.ErrIncorrectQuery},
		{
			name:    "bad batch id",
			rec:     func() *model.PurgeRecord { r := valid(); r.BatchID = "batch-1"; return r }(),
			wantErr: model.ErrIncorrectQuery,
		},
		{
			name:    "more deleted than requested",
			rec:     func() *model.PurgeRecord { r := valid(); r.Deleted = 3; return r }(),
			wantErr: model.ErrIncorrectQuery,
		},
		{name: "db error", rec: valid(), repoErr: errors.New("db down"), wantErr: model.ErrCommon500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockPurgeLog{
				recordFn: func(ctx context.Context, rec *model.PurgeRecord) error {
					called = true
					return tt.repoErr
				},
			}

			err := NewHistoryService(repo).Record(context.Background(), tt.rec)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.True(t, called)
		})
	}
}
