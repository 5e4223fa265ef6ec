package worker

import (
	"context"

	"github.com/junker098/universe-app/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

type mockRecorder struct {
	recordFn func(ctx context.Context, rec *model.PurgeRecord) error
}

func (m *mockRecorder) Record(ctx context.Context, rec *model.PurgeRecord) error {
	return m.recordFn(ctx, rec)
}

//----------------------------------

type mockCommitter struct {
	committed chan kafkago.Message
	err       error
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.committed <- msg
	return m.err
}
