package fsstorage

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/junker098/universe-app/internal/model"
	"github.com/stretchr/testify/require"
)

func writePhoto(t *testing.T, root, rel string, mtime time.Time) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, imaging.Save(img, p))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
}

func newTestLibrary(t *testing.T) (*Library, string) {
	t.Helper()

	root := t.TempDir()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	writePhoto(t, root, "old.png", base)
	writePhoto(t, root, "trip/new.jpg", base.Add(2*time.Hour))
	writePhoto(t, root, "b.png", base.Add(time.Hour))
	writePhoto(t, root, "a.png", base.Add(time.Hour))
	writePhoto(t, root, ".hidden.png", base.Add(5*time.Hour))
	writePhoto(t, root, ".cache/skip.png", base.Add(5*time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))

	lib, err := New(root)
	require.NoError(t, err)
	return lib, root
}

func TestFetchAllPhotos(t *testing.T) {
	lib, _ := newTestLibrary(t)

	photos, err := lib.FetchAllPhotos(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
		require.False(t, p.MarkedForDeletion)
	}
	// новые сверху, равные по времени - по id
	require.Equal(t, []string{"trip/new.jpg", "a.png", "b.png", "old.png"}, ids)
}

func TestFetchAllPhotosMissingRoot(t *testing.T) {
	lib, err := New(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)

	_, err = lib.FetchAllPhotos(context.Background())
	require.Error(t, err)
}

func TestFetchImage(t *testing.T) {
	lib, _ := newTestLibrary(t)
	ctx := context.Background()

	img, err := lib.FetchImage(ctx, "trip/new.jpg")
	require.NoError(t, err)
	require.NotNil(t, img)
	require.Equal(t, 8, img.Bounds().Dx())

	img, err = lib.FetchImage(ctx, "gone.png")
	require.NoError(t, err)
	require.Nil(t, img)

	_, err = lib.FetchImage(ctx, "")
	require.ErrorIs(t, err, model.ErrPhotoNotFound)
}

func TestDeleteByIDs(t *testing.T) {
	lib, root := newTestLibrary(t)
	ctx := context.Background()

	n, err := lib.DeleteByIDs(ctx, []string{"a.png", "trip/new.jpg", "already-gone.png"})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = os.Stat(filepath.Join(root, "a.png"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "b.png"))
	require.NoError(t, err)

	n, err = lib.DeleteByIDs(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDeleteByIDsDeclined(t *testing.T) {
	lib, root := newTestLibrary(t)

	var asked []string
	lib.WithConfirm(func(_ context.Context, ids []string) bool {
		asked = ids
		return false
	})

	n, err := lib.DeleteByIDs(context.Background(), []string{"b.png"})
	require.ErrorIs(t, err, model.ErrDeletionDeclined)
	require.Zero(t, n)
	require.Equal(t, []string{"b.png"}, asked)

	_, err = os.Stat(filepath.Join(root, "b.png"))
	require.NoError(t, err)
}

func TestDeleteByIDsSlowConfirmation(t *testing.T) {
	lib, root := newTestLibrary(t)
	lib.WithConfirm(func(_ context.Context, ids []string) bool {
		// отвечает позже, чем истекает таймаут вызова
		time.Sleep(300 * time.Millisecond)
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	n, err := lib.DeleteByIDs(ctx, []string{"a.png"})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(root, "a.png"))
	require.True(t, os.IsNotExist(err))
}

func TestResolveStaysInsideRoot(t *testing.T) {
	lib, root := newTestLibrary(t)

	p, err := lib.resolve("../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "etc", "passwd"), p)

	_, err = lib.resolve("..")
	require.ErrorIs(t, err, model.ErrPhotoNotFound)
}

func TestRequestAuthorization(t *testing.T) {
	ctx := context.Background()
	lib, root := newTestLibrary(t)

	status, err := lib.RequestAuthorization(ctx)
	require.NoError(t, err)
	require.Equal(t, model.AuthAuthorized, status)

	missing, err := New(filepath.Join(root, "missing"))
	require.NoError(t, err)
	status, err = missing.RequestAuthorization(ctx)
	require.NoError(t, err)
	require.Equal(t, model.AuthNotDetermined, status)

	file, err := New(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	status, err = file.RequestAuthorization(ctx)
	require.NoError(t, err)
	require.Equal(t, model.AuthRestricted, status)
}
