package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Preview fits img into a w x h box keeping the aspect ratio and encodes it.
// Images already smaller than the box are encoded as is.
func Preview(img image.Image, w, h int, format imaging.Format) (io.Reader, int64, error) {
	if img == nil {
		return nil, 0, errors.New("nil image provided to Preview")
	}
	if w <= 0 || h <= 0 {
		return nil, 0, fmt.Errorf("incorrect preview box %dx%d", w, h)
	}

	b := img.Bounds()
	if b.Dx() > w || b.Dy() > h {
		img = imaging.Fit(img, w, h, imaging.Linear) // fast mode - как opportunistic в оригинале
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, 0, fmt.Errorf("failed to ENcode preview: %w", err)
	}
	return &buf, int64(buf.Len()), nil
}

// Thumbnail crops img to a size x size square.
func Thumbnail(img image.Image, size int, format imaging.Format) (io.Reader, int64, error) {
	if img == nil {
		return nil, -1, errors.New("nil image provided to Thumbnail")
	}
	if size <= 0 {
		return nil, -1, fmt.Errorf("incorrect thumbnail size %d", size)
	}
	thumb := imaging.Thumbnail(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, 0, fmt.Errorf("failed to ENcode thumbnail: %w", err)
	}
	return &buf, int64(buf.Len()), nil
}

// ThumbnailDataURL renders a small JPEG thumbnail as a data: URL for inline use.
func ThumbnailDataURL(img image.Image, size int) (string, error) {
	r, _, err := Thumbnail(img, size, imaging.JPEG)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
