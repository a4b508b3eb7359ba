package imagery

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

// ReprojectToGeographic resamples a Web Mercator texture covering rectangle so its rows
// are spaced evenly in latitude. Columns are unchanged since both projections are linear
// in longitude.
func ReprojectToGeographic(ctx context.Context, src *image.NRGBA, rectangle geodesy.Rectangle) (*image.NRGBA, error) {
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()
	out := imaging.New(width, height, image.Transparent)
	if height == 0 || width == 0 {
		return out, nil
	}

	sinNorth := geodesy.GeodeticLatitudeToMercatorAngle(rectangle.North)
	sinSouth := geodesy.GeodeticLatitudeToMercatorAngle(rectangle.South)
	oneOverMercatorHeight := 1 / (sinNorth - sinSouth)
	rowBytes := width * 4
	origin := src.Bounds().Min

	for row := 0; row < height; row++ {
		if row%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		latitude := rectangle.North - rectangle.Height()*(float64(row)+0.5)/float64(height)
		fraction := (sinNorth - geodesy.GeodeticLatitudeToMercatorAngle(latitude)) * oneOverMercatorHeight
		sourceRow := geodesy.Clamp(fraction*float64(height)-0.5, 0, float64(height-1))

		r0 := int(math.Floor(sourceRow))
		r1 := min(r0+1, height-1)
		t := sourceRow - float64(r0)

		a := src.Pix[src.PixOffset(origin.X, origin.Y+r0):][:rowBytes]
		b := src.Pix[src.PixOffset(origin.X, origin.Y+r1):][:rowBytes]
		dst := out.Pix[row*out.Stride:][:rowBytes]
		for i := range dst {
			dst[i] = uint8(math.Round(float64(a[i])*(1-t) + float64(b[i])*t))
		}
	}
	return out, nil
}
