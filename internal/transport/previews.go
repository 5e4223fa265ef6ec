package transport

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru"
	"github.com/junker098/universe-app/internal/imageproc"
	"github.com/junker098/universe-app/internal/model"
	"github.com/wb-go/wbf/zlog"
)

// PreviewCache keeps rendered JPEG previews of the latest shown photos.
type PreviewCache struct {
	cache  *lru.Cache
	width  int
	height int
}

func NewPreviewCache(size, width, height int) (*PreviewCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}
	return &PreviewCache{cache: c, width: width, height: height}, nil
}

// Put renders img and stores it under id.
func (p *PreviewCache) Put(id string, img image.Image) error {
	r, _, err := imageproc.Preview(img, p.width, p.height, imaging.JPEG)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.cache.Add(id, data)
	return nil
}

func (p *PreviewCache) Get(id string) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.cache.Get(id)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

// Feed renders every delivered photo until events is closed or ctx is done.
func (p *PreviewCache) Feed(ctx context.Context, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != model.EventPhotoReady || ev.Image == nil {
				continue
			}
			if err := p.Put(ev.PhotoID, ev.Image); err != nil {
				zlog.Logger.Error().Err(err).Str("photo_id", ev.PhotoID).Msg("Failed to render preview")
			}
		}
	}
}
