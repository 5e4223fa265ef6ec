package service

import (
	"context"
	"image"
	"sync"

	"github.com/junker098/universe-app/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK PHOTO SOURCE

type mockSource struct {
	authFn     func(ctx context.Context) (model.AuthStatus, error)
	fetchAllFn func(ctx context.Context) ([]model.Photo, error)
	imageFn    func(ctx context.Context, id string) (image.Image, error)
	deleteFn   func(ctx context.Context, ids []string) (int, error)
}

func (m *mockSource) RequestAuthorization(ctx context.Context) (model.AuthStatus, error) {
	if m.authFn == nil {
		return model.AuthAuthorized, nil
	}
	return m.authFn(ctx)
}

func (m *mockSource) FetchAllPhotos(ctx context.Context) ([]model.Photo, error) {
	return m.fetchAllFn(ctx)
}

func (m *mockSource) FetchImage(ctx context.Context, id string) (image.Image, error) {
	if m.imageFn == nil {
		return testImage(), nil
	}
	return m.imageFn(ctx, id)
}

func (m *mockSource) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	return m.deleteFn(ctx, ids)
}

// MOCK FLAG STORE

type mockFlags struct {
	mu     sync.Mutex
	loadFn func(ctx context.Context) (model.Flags, error)
	saveFn func(ctx context.Context, flags model.Flags) error
	saved  []model.Flags
}

func (m *mockFlags) LoadFlags(ctx context.Context) (model.Flags, error) {
	if m.loadFn == nil {
		return nil, nil
	}
	return m.loadFn(ctx)
}

func (m *mockFlags) SaveFlags(ctx context.Context, flags model.Flags) error {
	m.mu.Lock()
	m.saved = append(m.saved, flags)
	m.mu.Unlock()
	if m.saveFn == nil {
		return nil
	}
	return m.saveFn(ctx, flags)
}

func (m *mockFlags) saves() []model.Flags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Flags(nil), m.saved...)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sent chan []byte
	err  error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	m.sent <- v
	return m.err
}

// MOCK PURGE LOG

type mockPurgeLog struct {
	recordFn func(ctx context.Context, rec *model.PurgeRecord) error
	listFn   func(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}

func (m *mockPurgeLog) RecordPurge(ctx context.Context, rec *model.PurgeRecord) error {
	return m.recordFn(ctx, rec)
}

func (m *mockPurgeLog) ListPurges(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error) {
	return m.listFn(ctx, req)
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}
