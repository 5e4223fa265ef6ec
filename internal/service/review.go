package service

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/mwlogger"
)

// Start requests library access and loads the review sequence. Calling it
// again performs a full reload.
func (s *ReviewService) Start(ctx context.Context) error {
	return s.exec(ctx, func() error {
		// после отказа в доступе фаза остается loading, повторный Start разрешен
		if s.reloading || s.phase == model.PhasePurging {
			return model.ErrWorkflowBusy
		}
		s.phase = model.PhaseLoading
		s.reloading = true
		s.gen++ // всё, что было в полёте, устаревает

		go s.load(mwlogger.WithComponent(ctx, "loader"), s.gen)
		return nil
	})
}

// MarkCurrent flags the current photo for deletion and moves on to the next
// unmarked one. No-op without a current photo.
func (s *ReviewService) MarkCurrent(ctx context.Context) error {
	return s.exec(ctx, func() error {
		if s.busy() {
			return model.ErrWorkflowBusy
		}
		if s.current == "" {
			return nil
		}
		pos, ok := s.index[s.current]
		if !ok {
			return nil
		}

		s.photos[pos].MarkedForDeletion = true
		s.advance(ctx)
		s.emitTrashCount()
		return nil
	})
}

// Advance moves the cursor forward to the next unmarked photo. No-op without a
// current photo.
func (s *ReviewService) Advance(ctx context.Context) error {
	return s.exec(ctx, func() error {
		if s.busy() {
			return model.ErrWorkflowBusy
		}
		s.advance(ctx)
		return nil
	})
}

// PurgeMarked deletes every marked photo from the source in one batch and
// blocks until the source answers.
func (s *ReviewService) PurgeMarked(ctx context.Context) (model.PurgeResult, error) {
	type outcome struct {
		res model.PurgeResult
		err error
	}
	reply := make(chan outcome, 1)

	err := s.exec(ctx, func() error {
		if s.busy() {
			return model.ErrWorkflowBusy
		}

		ids := s.markedIDs()
		if len(ids) == 0 {
			reply <- outcome{res: model.PurgeResult{Deleted: 0, Message: deletedMessage(0)}}
			return nil
		}

		s.phase = model.PhasePurging
		go func() {
			dctx, cancel := s.detached(ctx)
			defer cancel()

			n, err := s.source.DeleteByIDs(dctx, ids)
			s.post(func() {
				res, err := s.finishPurge(ctx, ids, n, err)
				reply <- outcome{res: res, err: err}
			})
		}()
		return nil
	})
	if err != nil {
		return model.PurgeResult{}, err
	}

	select {
	case o := <-reply:
		return o.res, o.err
	case <-ctx.Done():
		return model.PurgeResult{}, ctx.Err()
	case <-s.stopped:
		return model.PurgeResult{}, model.ErrWorkflowStopped
	}
}

// PendingDeletionCount returns how many photos are marked.
func (s *ReviewService) PendingDeletionCount(ctx context.Context) (int, error) {
	var n int
	err := s.exec(ctx, func() error {
		n = s.pending()
		return nil
	})
	return n, err
}

// Snapshot returns a detached copy of the workflow state.
func (s *ReviewService) Snapshot(ctx context.Context) (model.ReviewState, error) {
	var st model.ReviewState
	err := s.exec(ctx, func() error {
		st = model.ReviewState{
			Phase:     s.phase,
			CurrentID: s.current,
			Pending:   s.pending(),
			Photos:    append([]model.Photo(nil), s.photos...),
		}
		if s.phase == model.PhaseReady || s.phase == model.PhasePurging {
			st.Showing = s.showing
		}
		return nil
	})
	return st, err
}

// PersistOnSuspend writes the {id -> marked} snapshot to the flag store.
// Failures are logged and never returned.
func (s *ReviewService) PersistOnSuspend(ctx context.Context) {
	logger := mwlogger.LoggerFromContext(ctx)

	var flags model.Flags
	err := s.exec(ctx, func() error {
		if !s.loaded {
			return nil
		}
		flags = make(model.Flags, len(s.photos))
		for _, p := range s.photos {
			flags[p.ID] = p.MarkedForDeletion
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to snapshot review flags")
		return
	}
	if flags == nil {
		// библиотека ещё не загружена - не затираем прошлый снимок пустым
		logger.Debug().Msg("Nothing loaded yet, skipping flags save")
		return
	}

	if err := s.flags.SaveFlags(ctx, flags); err != nil {
		logger.Error().Err(err).Int("photos", len(flags)).Msg("Failed to save review flags")
		return
	}
	logger.Debug().Int("photos", len(flags)).Msg("Review flags saved")
}

//---------------------------------------------------------------------------
// ниже - только из цикла Run

// busy is true whenever the sequence may not be touched: a reload or purge is
// in flight, or the last Start has not produced a library yet.
func (s *ReviewService) busy() bool {
	return s.reloading || s.phase == model.PhaseLoading || s.phase == model.PhasePurging
}

func (s *ReviewService) pending() int {
	n := 0
	for _, p := range s.photos {
		if p.MarkedForDeletion {
			n++
		}
	}
	return n
}

func (s *ReviewService) markedIDs() []string {
	ids := make([]string, 0, len(s.photos))
	for _, p := range s.photos {
		if p.MarkedForDeletion {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (s *ReviewService) advance(ctx context.Context) {
	if s.current == "" {
		return
	}

	next := nextUnmarked(s.photos, s.index, s.current)
	s.gen++
	if next < 0 {
		s.current = ""
		s.showing = model.ShowingBlank
		s.emitBlank("")
		return
	}

	s.current = s.photos[next].ID
	s.showPhoto(ctx, s.current)
}

// showPhoto fetches the image in the background; the result is emitted only if
// the cursor has not moved since.
func (s *ReviewService) showPhoto(ctx context.Context, id string) {
	gen := s.gen
	go func() {
		img, err := s.fetchImage(ctx, id)
		s.post(func() {
			if gen != s.gen || id != s.current {
				logger := mwlogger.LoggerFromContext(ctx)
				logger.Debug().Str("photo_id", id).Msg("Discarding stale image fetch")
				return
			}
			s.deliver(id, img, err)
		})
	}()
}

func (s *ReviewService) fetchImage(ctx context.Context, id string) (image.Image, error) {
	fctx, cancel := s.detached(ctx)
	defer cancel()

	img, err := s.source.FetchImage(fctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", model.ErrImageFetch, id, err)
	}
	return img, nil
}

func (s *ReviewService) deliver(id string, img image.Image, err error) {
	switch {
	case err != nil:
		// курсор уже на id, но показать нечего
		s.showing = model.ShowingBlank
		s.emitError(err)
	case img == nil:
		s.showing = model.ShowingBlank
		s.emitBlank(id)
	default:
		s.showing = model.ShowingPhoto
		s.bus.Publish(model.Event{Kind: model.EventPhotoReady, PhotoID: id, Image: img})
	}
}

// load runs outside the loop: authorization, enumeration, persisted flags and
// the first image. The merged result is applied inside the loop.
func (s *ReviewService) load(ctx context.Context, gen uint64) {
	logger := mwlogger.LoggerFromContext(ctx)
	lctx, cancel := s.detached(ctx)
	defer cancel()

	fail := func(err error) {
		s.post(func() {
			s.reloading = false
			s.emitError(err)
		})
	}

	status, err := s.source.RequestAuthorization(lctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to request photo library authorization")
		fail(fmt.Errorf("photo access check failed: %w", err))
		return
	}
	if status != model.AuthAuthorized {
		reason, ok := model.AuthErrors[status]
		if !ok {
			reason = fmt.Errorf("%w: unknown status %q", model.ErrAccessNotDetermined, status)
		}
		logger.Warn().Str("status", string(status)).Msg("Photo library access not granted")
		fail(reason)
		return
	}

	fresh, err := s.source.FetchAllPhotos(lctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enumerate photo library")
		fail(fmt.Errorf("failed to load photos: %w", err))
		return
	}

	// ошибки хранилища флагов не показываем - просто начинаем с чистого листа
	saved, err := s.flags.LoadFlags(lctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load saved review flags")
		saved = nil
	}

	photos := reconcile(fresh, saved)
	first := firstUnmarked(photos)

	var img image.Image
	var fetchErr error
	if first != "" {
		img, fetchErr = s.fetchImage(ctx, first)
	}

	s.post(func() {
		s.reloading = false
		if gen != s.gen {
			return
		}
		s.photos = photos
		s.index = indexByID(photos)
		s.current = first
		s.phase = model.PhaseReady
		s.loaded = true
		logger.Info().Int("photos", len(photos)).Int("marked", s.pending()).Msg("Photo library loaded")

		if first == "" {
			s.showing = model.ShowingBlank
			s.emitBlank("")
		} else {
			s.deliver(first, img, fetchErr)
		}
		s.emitTrashCount()
	})
}

func (s *ReviewService) finishPurge(ctx context.Context, ids []string, n int, err error) (model.PurgeResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	s.phase = model.PhaseReady

	if err != nil {
		logger.Warn().Err(err).Int("requested", len(ids)).Int("removed", n).Msg("Purge rejected by photo source")
		if n > 0 {
			// часть файлов уже удалена; последовательность не трогаем, перезагрузка их отбросит
			return model.PurgeResult{}, fmt.Errorf("%w: %d of %d photos removed before failure: %w",
				model.ErrDeletionNotPermitted, n, len(ids), err)
		}
		return model.PurgeResult{}, fmt.Errorf("%w: %w", model.ErrDeletionNotPermitted, err)
	}

	s.photos = removeIDs(s.photos, ids)
	s.index = indexByID(s.photos)
	s.emitTrashCount()

	res := model.PurgeResult{
		BatchID: uuid.New().String(),
		Deleted: n,
		IDs:     ids,
		Message: deletedMessage(n),
	}
	logger.Info().Str("batch_id", res.BatchID).Int("deleted", n).Msg("Trash purged")

	if s.publisher != nil {
		rec := &model.PurgeRecord{
			BatchID:  res.BatchID,
			Deleted:  n,
			PhotoIDs: ids,
			Source:   s.srcName,
			PurgedAt: time.Now().UTC(),
		}
		go s.publishPurge(ctx, rec)
	}
	return res, nil
}

func (s *ReviewService) publishPurge(ctx context.Context, rec *model.PurgeRecord) {
	logger := mwlogger.LoggerFromContext(ctx)
	payload, err := json.Marshal(rec)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal purge record")
		return
	}

	if err := s.publisher.SendWithRetry(context.WithoutCancel(ctx), retryStrategy, []byte(rec.BatchID), payload); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish purge batch %q to audit-queue", rec.BatchID))
	}
}

func (s *ReviewService) emitTrashCount() {
	s.bus.Publish(model.Event{Kind: model.EventTrashCount, Count: s.pending()})
}

func (s *ReviewService) emitBlank(id string) {
	s.bus.Publish(model.Event{Kind: model.EventPhotoReady, PhotoID: id, Blank: true})
}

func (s *ReviewService) emitError(err error) {
	s.bus.Publish(model.Event{Kind: model.EventError, Message: err.Error()})
}

func deletedMessage(n int) string {
	return fmt.Sprintf("%d photos deleted", n)
}
