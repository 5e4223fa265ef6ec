package main

import (
	"context"

	"github.com/junker098/universe-app/internal/model"
)

type PurgeHistoryService interface {
	Record(ctx context.Context, rec *model.PurgeRecord) error
	GetList(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}
