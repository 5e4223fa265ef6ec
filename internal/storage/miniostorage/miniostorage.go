// Package miniostorage exposes a MinIO/S3 bucket as a photo library.
// Photo ids are object keys.
package miniostorage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/junker098/universe-app/internal/imageproc"
	"github.com/junker098/universe-app/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cast"
	"github.com/wb-go/wbf/config"
)

// ключ пользовательских метаданных с временем съемки (RFC3339)
const capturedAtMeta = "Captured-At"

type MinioPhotoLibrary struct {
	bucket string
	prefix string
	client *minio.Client
}

func NewMinioClient(cfg *config.Config) (*MinioPhotoLibrary, error) {
	bucket := cfg.GetString("BUCKET_NAME")
	if bucket == "" {
		bucket = "photos"
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	endpoint := cfg.GetString("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}
	user := cfg.GetString("MINIO_USER")
	pass := cfg.GetString("MINIO_PASS")
	secure := cast.ToBool(cfg.GetString("MINIO_SECURE"))

	// подключаемся к минио - создаем клиента
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(user, pass, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	return &MinioPhotoLibrary{
		bucket: bucket,
		prefix: cfg.GetString("BUCKET_PREFIX"),
		client: client,
	}, nil
}

// RequestAuthorization probes the bucket. A missing bucket is reported as
// not determined; rejected credentials as denied.
func (s *MinioPhotoLibrary) RequestAuthorization(ctx context.Context) (model.AuthStatus, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		if status, ok := authStatusFromErr(err); ok {
			return status, nil
		}
		return model.AuthNotDetermined, err
	}
	if !exists {
		return model.AuthNotDetermined, nil
	}
	return model.AuthAuthorized, nil
}

func (s *MinioPhotoLibrary) FetchAllPhotos(ctx context.Context) ([]model.Photo, error) {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       s.prefix,
		Recursive:    true,
		WithMetadata: true,
	})

	var photos []model.Photo
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %q: %w", s.bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !imageproc.IsImageName(obj.Key) {
			continue
		}
		photos = append(photos, model.Photo{
			ID:         obj.Key,
			CapturedAt: capturedAt(obj),
		})
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if !photos[i].CapturedAt.Equal(photos[j].CapturedAt) {
			return photos[i].CapturedAt.After(photos[j].CapturedAt)
		}
		return photos[i].ID < photos[j].ID
	})
	return photos, nil
}

// FetchImage returns (nil, nil) when the object no longer exists.
func (s *MinioPhotoLibrary) FetchImage(ctx context.Context, id string) (image.Image, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	// GetObject ленивый - ошибки доступа всплывают только на Stat/Read
	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}

	return imageproc.Decode(obj)
}

// DeleteByIDs removes the batch with one multi-object delete. Any per-object
// failure fails the whole call.
func (s *MinioPhotoLibrary) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	objCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objCh)
		for _, id := range ids {
			select {
			case objCh <- minio.ObjectInfo{Key: id}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objCh, minio.RemoveObjectsOptions{}) {
		if _, denied := authStatusFromErr(rErr.Err); denied {
			errs = append(errs, fmt.Errorf("%s: %w: %w", rErr.ObjectName, model.ErrAccessDenied, rErr.Err))
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", rErr.ObjectName, rErr.Err))
	}
	if len(errs) > 0 {
		return len(ids) - len(errs), errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func authStatusFromErr(err error) (model.AuthStatus, bool) {
	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return model.AuthDenied, true
	case "AllAccessDisabled":
		return model.AuthRestricted, true
	}
	return "", false
}

func capturedAt(obj minio.ObjectInfo) time.Time {
	for k, v := range obj.UserMetadata {
		if !strings.EqualFold(strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-"), capturedAtMeta) {
			continue
		}
		if tm, err := cast.ToTimeE(v); err == nil && !tm.IsZero() {
			return tm.UTC()
		}
	}
	return obj.LastModified.UTC()
}
