package main

import (
	"context"

	"github.com/junker098/universe-app/internal/model"
)

type ReviewAPIService interface {
	Run(ctx context.Context)
	Start(ctx context.Context) error
	MarkCurrent(ctx context.Context) error
	Advance(ctx context.Context) error
	PurgeMarked(ctx context.Context) (model.PurgeResult, error)
	PendingDeletionCount(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (model.ReviewState, error)
	PersistOnSuspend(ctx context.Context)
	Subscribe() (<-chan model.Event, func())
}

type PurgeHistoryService interface {
	GetList(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}

// closer is whatever has to be released on shutdown.
type closer interface {
	Close() error
}
