// Package fsstorage exposes a local directory tree as a photo library.
// Photo ids are slash-separated paths relative to the library root.
package fsstorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/junker098/universe-app/internal/imageproc"
	"github.com/junker098/universe-app/internal/model"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"github.com/wb-go/wbf/zlog"
)

// exif-заголовок всегда в начале файла, дальше не читаем
const exifProbeSize = 256 << 10

func init() {
	exif.RegisterParsers(mknote.All...)
}

// ConfirmFunc is asked before anything is removed from disk. Returning false
// declines the whole batch.
type ConfirmFunc func(ctx context.Context, ids []string) bool

type Library struct {
	root    string
	confirm ConfirmFunc
}

func New(root string) (*Library, error) {
	if root == "" {
		return nil, errors.New("library root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root: %w", err)
	}
	return &Library{root: abs}, nil
}

// WithConfirm installs the deletion prompt.
func (l *Library) WithConfirm(fn ConfirmFunc) *Library {
	l.confirm = fn
	return l
}

func (l *Library) Root() string {
	return l.root
}

func (l *Library) RequestAuthorization(ctx context.Context) (model.AuthStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.AuthNotDetermined, err
	}

	info, err := os.Stat(l.root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return model.AuthNotDetermined, nil
	case errors.Is(err, fs.ErrPermission):
		return model.AuthDenied, nil
	case err != nil:
		return model.AuthNotDetermined, err
	}
	if !info.IsDir() {
		return model.AuthRestricted, nil
	}

	if !canRead(l.root) {
		return model.AuthDenied, nil
	}
	if !canWrite(l.root) {
		return model.AuthLimited, nil
	}
	return model.AuthAuthorized, nil
}

// FetchAllPhotos walks the tree skipping hidden entries. Newest first; ties
// are broken by id so the order is stable between reloads.
func (l *Library) FetchAllPhotos(ctx context.Context) ([]model.Photo, error) {
	logger := zlog.Logger.With().Str("component", "fsstorage").Logger()
	var photos []model.Photo

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == l.root {
				return err
			}
			logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if p != l.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !imageproc.IsImageName(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		photos = append(photos, model.Photo{
			ID:         filepath.ToSlash(rel),
			CapturedAt: captureTime(p, d),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate library: %w", err)
	}

	sort.SliceStable(photos, func(i, j int) bool {
		if !photos[i].CapturedAt.Equal(photos[j].CapturedAt) {
			return photos[i].CapturedAt.After(photos[j].CapturedAt)
		}
		return photos[i].ID < photos[j].ID
	})

	return photos, nil
}

// FetchImage returns (nil, nil) when the photo is gone from disk.
func (l *Library) FetchImage(ctx context.Context, id string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.resolve(id)
	if err != nil {
		return nil, err
	}

	img, err := imageproc.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return img, nil
}

// DeleteByIDs removes the batch. Missing files count as removed; the first
// real failure aborts the rest. Time spent in the confirmation prompt is not
// charged against the ctx deadline.
func (l *Library) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	started := time.Now()

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := l.resolve(id)
		if err != nil {
			return 0, err
		}
		paths = append(paths, p)
	}

	if l.confirm != nil {
		if !l.confirm(ctx, ids) {
			return 0, model.ErrDeletionDeclined
		}
		// человек мог думать дольше таймаута - отсчет начинаем заново
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), deadline.Sub(started))
			defer cancel()
		}
	}

	deleted := 0
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleted, fmt.Errorf("failed to remove %q: %w", ids[i], err)
		}
		deleted++
	}
	return deleted, nil
}

// resolve maps an id to a path and refuses anything escaping the root.
func (l *Library) resolve(id string) (string, error) {
	clean := path.Clean("/" + id)
	if id == "" || clean == "/" || strings.HasPrefix(path.Base(clean), ".") {
		return "", fmt.Errorf("%w: %q", model.ErrPhotoNotFound, id)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// captureTime prefers EXIF DateTimeOriginal, falls back to mtime.
func captureTime(p string, d fs.DirEntry) time.Time {
	var fallback time.Time
	if info, err := d.Info(); err == nil {
		fallback = info.ModTime().UTC()
	}

	f, err := os.Open(p)
	if err != nil {
		return fallback
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, exifProbeSize))
	if err != nil {
		return fallback
	}

	x, err := exif.Decode(bytes.NewReader(head))
	if err != nil {
		return fallback
	}
	tm, err := x.DateTime()
	if err != nil || tm.IsZero() {
		return fallback
	}
	return tm.UTC()
}
