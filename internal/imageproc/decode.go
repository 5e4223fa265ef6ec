// Package imageproc provides decoding of library photos and rendering of previews and thumbnails.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

var imageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageName reports whether a file name or object key looks like a
// supported photo. Hidden names (leading dot) never match.
func IsImageName(name string) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	return imageExt[strings.ToLower(path.Ext(base))]
}

// Decode reads a photo applying its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, errors.New("nil-reader provided to Decode")
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode photo: %w", err)
	}
	return img, nil
}

// Open decodes a photo from disk applying its EXIF orientation.
func Open(filename string) (image.Image, error) {
	img, err := imaging.Open(filename, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open photo %q: %w", filename, err)
	}
	return img, nil
}
