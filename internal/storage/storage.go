// Package storage selects and connects the photo library backend.
package storage

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/storage/fsstorage"
	"github.com/junker098/universe-app/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

// PhotoLibrary is what every backend provides to the review workflow.
type PhotoLibrary interface {
	RequestAuthorization(ctx context.Context) (model.AuthStatus, error)
	FetchAllPhotos(ctx context.Context) ([]model.Photo, error)
	FetchImage(ctx context.Context, id string) (image.Image, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}

const (
	SourceMinio = "minio"
	SourceFS    = "fs"
)

// NewPhotoSource builds the backend named by PHOTO_SOURCE. The MinIO client is
// retried until it can be created.
func NewPhotoSource(cfg *config.Config, delay time.Duration) (PhotoLibrary, string, error) {
	kind := cfg.GetString("PHOTO_SOURCE")
	if kind == "" {
		kind = SourceMinio
	}

	switch kind {
	case SourceFS:
		lib, err := fsstorage.New(cfg.GetString("LIBRARY_DIR"))
		if err != nil {
			return nil, "", err
		}
		log.Printf("Using local photo library at %q", lib.Root())
		return lib, SourceFS, nil
	case SourceMinio:
		return newMinioWithRetries(cfg, delay), SourceMinio, nil
	}
	return nil, "", fmt.Errorf("unknown PHOTO_SOURCE %q", kind)
}

func newMinioWithRetries(cfg *config.Config, delay time.Duration) *miniostorage.MinioPhotoLibrary {
	for {
		log.Println("Connecting to photo storage...")
		client, err := miniostorage.NewMinioClient(cfg)
		if err != nil {
			log.Printf("Failed to init connection to photo storage: %v\nNext retry in %v...", err, delay)
			time.Sleep(delay)
			continue
		}
		log.Println("Successfully connected photo storage!")
		return client
	}
}
