package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/mwlogger"
	"github.com/junker098/universe-app/internal/repository"
)

// HistoryService keeps the audit trail of purges.
type HistoryService struct {
	repo repository.PurgeLogRepo
}

func NewHistoryService(repo repository.PurgeLogRepo) *HistoryService {
	return &HistoryService{repo: repo}
}

func (h HistoryService) GetList(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := h.repo.ListPurges(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch purge history from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

// Record stores one purge batch. Replays of the same batch are harmless.
func (h HistoryService) Record(ctx context.Context, rec *model.PurgeRecord) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if rec == nil || uuid.Validate(rec.BatchID) != nil {
		return model.ErrIncorrectQuery
	}
	if rec.Deleted < 0 || rec.Deleted > len(rec.PhotoIDs) {
		return fmt.Errorf("%w: deleted=%d for %d ids", model.ErrIncorrectQuery, rec.Deleted, len(rec.PhotoIDs))
	}

	if err := h.repo.RecordPurge(ctx, rec); err != nil {
		if errors.Is(err, model.ErrIncorrectQuery) {
			return err
		}
		logger.Error().Err(err).Str("batch_id", rec.BatchID).Msg("Failed to save purge record in DB")
		return model.ErrCommon500
	}
	return nil
}
