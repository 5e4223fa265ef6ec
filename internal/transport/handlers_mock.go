package transport

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/junker098/universe-app/internal/model"
)

type mockReviewService struct {
	startFn     func(ctx context.Context) error
	markFn      func(ctx context.Context) error
	advanceFn   func(ctx context.Context) error
	purgeFn     func(ctx context.Context) (model.PurgeResult, error)
	countFn     func(ctx context.Context) (int, error)
	snapshotFn  func(ctx context.Context) (model.ReviewState, error)
	suspendFn   func(ctx context.Context)
	subscribeFn func() (<-chan model.Event, func())
}

func (m *mockReviewService) Start(ctx context.Context) error {
	return m.startFn(ctx)
}

func (m *mockReviewService) MarkCurrent(ctx context.Context) error {
	return m.markFn(ctx)
}

func (m *mockReviewService) Advance(ctx context.Context) error {
	return m.advanceFn(ctx)
}

func (m *mockReviewService) PurgeMarked(ctx context.Context) (model.PurgeResult, error) {
	return m.purgeFn(ctx)
}

func (m *mockReviewService) PendingDeletionCount(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

func (m *mockReviewService) Snapshot(ctx context.Context) (model.ReviewState, error) {
	return m.snapshotFn(ctx)
}

func (m *mockReviewService) PersistOnSuspend(ctx context.Context) {
	m.suspendFn(ctx)
}

func (m *mockReviewService) Subscribe() (<-chan model.Event, func()) {
	return m.subscribeFn()
}

//----------------------------------

type mockHistoryService struct {
	getListFn func(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}

func (m *mockHistoryService) GetList(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}
