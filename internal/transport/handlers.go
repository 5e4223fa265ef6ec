// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type ReviewHandler struct {
	review   ReviewService
	history  HistoryService
	previews *PreviewCache
	upgrader websocket.Upgrader
}

type ReviewService interface {
	Start(ctx context.Context) error
	MarkCurrent(ctx context.Context) error
	Advance(ctx context.Context) error
	PurgeMarked(ctx context.Context) (model.PurgeResult, error)
	PendingDeletionCount(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (model.ReviewState, error)
	PersistOnSuspend(ctx context.Context)
	Subscribe() (<-chan model.Event, func())
}

type HistoryService interface {
	GetList(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}

type purgeRequest struct {
	Confirm bool `json:"confirm"`
}

func NewReviewHandler(review ReviewService, history HistoryService, previews *PreviewCache) *ReviewHandler {
	return &ReviewHandler{
		review:   review,
		history:  history,
		previews: previews,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h ReviewHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h ReviewHandler) Start(ctx *ginext.Context) {
	if err := h.review.Start(ctx.Request.Context()); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	// результат загрузки приходит событиями
	ctx.JSON(202, map[string]string{"message": "loading"})
}

func (h ReviewHandler) State(ctx *ginext.Context) {
	state, err := h.review.Snapshot(ctx.Request.Context())
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(200, state)
}

func (h ReviewHandler) Mark(ctx *ginext.Context) {
	h.stepAndReport(ctx, h.review.MarkCurrent)
}

func (h ReviewHandler) Advance(ctx *ginext.Context) {
	h.stepAndReport(ctx, h.review.Advance)
}

func (h ReviewHandler) stepAndReport(ctx *ginext.Context, step func(context.Context) error) {
	if err := step(ctx.Request.Context()); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	h.State(ctx)
}

func (h ReviewHandler) TrashCount(ctx *ginext.Context) {
	n, err := h.review.PendingDeletionCount(ctx.Request.Context())
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(200, map[string]int{"pending_deletion": n})
}

// Purge empties the trash. The body must carry {"confirm": true}; without it
// the caller gets the number of photos it is about to delete.
func (h ReviewHandler) Purge(ctx *ginext.Context) {
	var req purgeRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to parse request body"})
			return
		}
	}

	if !req.Confirm {
		n, err := h.review.PendingDeletionCount(ctx.Request.Context())
		if err != nil {
			ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
			return
		}
		ctx.JSON(400, map[string]any{"error": model.ErrConfirmRequired.Error(), "pending_deletion": n})
		return
	}

	res, err := h.review.PurgeMarked(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, model.ErrDeletionNotPermitted) {
			code := 500
			if model.DeletionRefused(err) {
				code = 403
			}
			ctx.JSON(code, map[string]string{"error": model.PurgeFailureMessage(err)})
			return
		}
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(200, res)
}

func (h ReviewHandler) Suspend(ctx *ginext.Context) {
	h.review.PersistOnSuspend(ctx.Request.Context())
	ctx.Status(204)
}

func (h ReviewHandler) Preview(ctx *ginext.Context) {
	id := ctx.Query("id")
	if id == "" {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectQuery.Error()})
		return
	}

	data, ok := h.previews.Get(id)
	if !ok {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Debug().Str("photo_id", id).Msg("Preview cache miss")
		ctx.JSON(404, map[string]string{"error": model.ErrPhotoNotFound.Error()})
		return
	}

	ctx.Header("Cache-Control", "private, max-age=60")
	ctx.Data(200, model.JPEG, data)
}

func (h ReviewHandler) PurgeHistory(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.history.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}
