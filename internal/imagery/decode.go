package imagery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("empty image")

// Decode turns fetched bytes into an NRGBA texture of the provider's tile size.
func Decode(ctx context.Context, raw *RawImage, width, height int) (*image.NRGBA, error) {
	if raw == nil || len(raw.Data) == 0 {
		return nil, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q image: %w", raw.ContentType, err)
	}

	b := img.Bounds()
	if width > 0 && height > 0 && (b.Dx() != width || b.Dy() != height) {
		return imaging.Resize(img, width, height, imaging.Linear), nil
	}
	return imaging.Clone(img), nil
}
