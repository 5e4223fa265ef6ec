package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/junker098/universe-app/internal/model"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func auditMessage(t *testing.T, rec model.PurgeRecord) kafkago.Message {
	t.Helper()

	v, err := json.Marshal(rec)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(rec.BatchID), Value: v}
}

func TestDecodePurgeRecord(t *testing.T) {
	id := uuid.New().String()
	rec := model.PurgeRecord{BatchID: id, Deleted: 2, PhotoIDs: model.StringSlice{"a", "b"}, Source: "fs"}

	got, err := DecodePurgeRecord(auditMessage(t, rec))
	require.NoError(t, err)
	require.Equal(t, id, got.BatchID)
	require.Equal(t, model.StringSlice{"a", "b"}, got.PhotoIDs)

	_, err = DecodePurgeRecord(kafkago.Message{Value: []byte("{broken")})
	require.Error(t, err)

	msg := auditMessage(t, rec)
	msg.Key = []byte("other")
	_, err = DecodePurgeRecord(msg)
	require.Error(t, err)
}

func TestWorker_handle(t *testing.T) {
	ctx := context.Background()
	rec := model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 1, PhotoIDs: model.StringSlice{"a"}}

	tests := []struct {
		name      string
		msg       kafkago.Message
		recordErr error
		wantErr   bool
	}{
		{name: "OK", msg: auditMessage(t, rec)},
		{name: "malformed is skipped", msg: kafkago.Message{Value: []byte("nope")}},
		{name: "invalid record is skipped", msg: auditMessage(t, rec), recordErr: model.ErrIncorrectQuery},
		{name: "db failure is retried", msg: auditMessage(t, rec), recordErr: model.ErrCommon500, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Worker{service: &mockRecorder{
				recordFn: func(ctx context.Context, _ *model.PurgeRecord) error {
					return tt.recordErr
				},
			}}

			err := w.handle(ctx, tt.msg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWorker_StartWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	okRec := model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 1, PhotoIDs: model.StringSlice{"a"}}
	failRec := model.PurgeRecord{BatchID: uuid.New().String(), Deleted: 1, PhotoIDs: model.StringSlice{"b"}}

	queue := make(chan kafkago.Message, 2)
	queue <- auditMessage(t, failRec)
	queue <- auditMessage(t, okRec)
	close(queue)

	committer := &mockCommitter{committed: make(chan kafkago.Message, 2)}
	w := NewWorkerInstance(&mockRecorder{
		recordFn: func(ctx context.Context, rec *model.PurgeRecord) error {
			if rec.BatchID == failRec.BatchID {
				return errors.New("db down")
			}
			return nil
		},
	}, queue, committer)

	done := make(chan struct{})
	go func() {
		w.StartWorker(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue was closed")
	}

	require.Len(t, committer.committed, 1)
	msg := <-committer.committed
	require.Equal(t, okRec.BatchID, string(msg.Key))
}
