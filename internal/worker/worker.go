// Package worker consumes the purge audit topic and stores every batch in the purge log
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/junker098/universe-app/internal/model"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// NoopPublisher - ЗАГЛУШКА для запуска без кафки: аудит просто не отправляется
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

type PurgeRecorder interface {
	Record(ctx context.Context, rec *model.PurgeRecord) error
}

// Committer is the part of the kafka consumer the worker needs.
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	service  PurgeRecorder
	queue    <-chan kafkago.Message
	consumer Committer
}

func NewWorkerInstance(svc PurgeRecorder, q <-chan kafkago.Message, cons Committer) *Worker {
	return &Worker{service: svc, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			if err := w.handle(ctx, msg); err != nil {
				// без коммита - сообщение придет снова
				zlog.Logger.Error().Err(err).Str("key", string(msg.Key)).Msg("Purge audit message failed")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

// handle returns an error only when a retry could help. Malformed messages
// are logged and acknowledged.
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) error {
	rec, err := DecodePurgeRecord(msg)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("key", string(msg.Key)).Msg("Skipping malformed purge audit message")
		return nil
	}

	if err := w.service.Record(ctx, rec); err != nil {
		if errors.Is(err, model.ErrIncorrectQuery) {
			zlog.Logger.Warn().Err(err).Str("batch_id", rec.BatchID).Msg("Skipping invalid purge record")
			return nil
		}
		return fmt.Errorf("failed to record purge batch %q: %w", rec.BatchID, err)
	}

	zlog.Logger.Info().Str("batch_id", rec.BatchID).Int("deleted", rec.Deleted).Msg("Purge batch recorded")
	return nil
}

// DecodePurgeRecord parses one audit message. The message key, when present,
// must match the batch id.
func DecodePurgeRecord(msg kafkago.Message) (*model.PurgeRecord, error) {
	var rec model.PurgeRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode purge record: %w", err)
	}
	if len(msg.Key) > 0 && string(msg.Key) != rec.BatchID {
		return nil, fmt.Errorf("message key %q doesn't match batch id %q", msg.Key, rec.BatchID)
	}
	return &rec, nil
}
