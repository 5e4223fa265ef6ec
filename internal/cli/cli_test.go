package cli

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/repository/flagsqlite"
	"github.com/stretchr/testify/require"
)

// newLibrary creates a.png (newest) and b.png.
func newLibrary(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	lib := filepath.Join(dir, "photos")
	require.NoError(t, os.MkdirAll(lib, 0755))

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.png", "b.png"} {
		p := filepath.Join(lib, name)
		require.NoError(t, imaging.Save(image.NewRGBA(image.Rect(0, 0, 6, 6)), p))
		mtime := base.Add(-time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}
	return lib, filepath.Join(dir, "trash.db")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func saveFlags(t *testing.T, dbPath string, flags model.Flags) {
	t.Helper()

	repo, err := flagsqlite.Open(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.SaveFlags(context.Background(), flags))
}

func loadFlags(t *testing.T, dbPath string) model.Flags {
	t.Helper()

	repo, err := flagsqlite.Open(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	flags, err := repo.LoadFlags(context.Background())
	require.NoError(t, err)
	return flags
}

func TestReviewMarksAndSavesOnQuit(t *testing.T) {
	lib, db := newLibrary(t)
	preview := filepath.Join(t.TempDir(), "current.jpg")

	out, err := run(t, "d\nq\n", "review", "--library", lib, "--db", db, "--preview", preview)
	require.NoError(t, err)
	require.Contains(t, out, "photo: a.png")
	require.Contains(t, out, "trash: 0")
	require.Contains(t, out, "trash: 1")

	require.Equal(t, model.Flags{"a.png": true, "b.png": false}, loadFlags(t, db))

	_, err = os.Stat(preview)
	require.NoError(t, err)
}

func TestReviewStartsAfterSavedMarks(t *testing.T) {
	lib, db := newLibrary(t)
	saveFlags(t, db, model.Flags{"a.png": true})

	out, err := run(t, "c\n", "review", "--library", lib, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "photo: b.png")
	require.NotContains(t, out, "photo: a.png")
	require.Contains(t, out, "trash: 1")
}

func TestPurgeWithYes(t *testing.T) {
	lib, db := newLibrary(t)
	saveFlags(t, db, model.Flags{"a.png": true, "b.png": false})

	out, err := run(t, "", "purge", "--yes", "--library", lib, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "1 photos deleted")

	_, err = os.Stat(filepath.Join(lib, "a.png"))
	require.True(t, os.IsNotExist(err))
	require.Equal(t, model.Flags{"b.png": false}, loadFlags(t, db))

	out, err = run(t, "", "history", "--library", lib, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "1 deleted (fs)")
}

func TestPurgeDeclined(t *testing.T) {
	lib, db := newLibrary(t)
	saveFlags(t, db, model.Flags{"a.png": true})

	out, err := run(t, "n\n", "purge", "--library", lib, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "Allow trashctl to delete 1 photos? [y/N]")
	require.Contains(t, out, "You did not allow these photos to be deleted")

	_, err = os.Stat(filepath.Join(lib, "a.png"))
	require.NoError(t, err)
	require.Equal(t, model.Flags{"a.png": true, "b.png": false}, loadFlags(t, db))
}

func TestStatusAndEmptyHistory(t *testing.T) {
	lib, db := newLibrary(t)
	saveFlags(t, db, model.Flags{"b.png": true})

	out, err := run(t, "", "status", "--library", lib, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "photos: 2\nmarked: 1\n")

	out, err = run(t, "", "history", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "no purges yet")
}

func TestReviewMissingLibrary(t *testing.T) {
	_, db := newLibrary(t)

	out, err := run(t, "", "review", "--library", filepath.Join(t.TempDir(), "nope"), "--db", db)
	require.Error(t, err)
	require.Contains(t, out, model.ErrAccessNotDetermined.Error())
}
