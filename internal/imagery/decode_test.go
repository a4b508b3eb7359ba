package imagery

import (
	"context"
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
)

func TestDecode(t *testing.T) {
	ctx := context.Background()
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}

	t.Run("resizes to tile size", func(t *testing.T) {
		img, err := Decode(ctx, &RawImage{Data: solidPNG(8, c), ContentType: "image/png"}, 4, 4)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
		test.That(t, img.Bounds().Dy(), test.ShouldEqual, 4)
		test.That(t, img.NRGBAAt(1, 1), test.ShouldResemble, c)
	})

	t.Run("keeps matching size", func(t *testing.T) {
		img, err := Decode(ctx, &RawImage{Data: solidPNG(4, c)}, 4, 4)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decode(ctx, &RawImage{}, 4, 4)
		test.That(t, err, test.ShouldBeError, ErrEmptyImage)
		_, err = Decode(ctx, nil, 4, 4)
		test.That(t, err, test.ShouldBeError, ErrEmptyImage)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode(ctx, &RawImage{Data: []byte("not an image"), ContentType: "text/plain"}, 4, 4)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "text/plain")
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Decode(canceled, &RawImage{Data: solidPNG(4, c)}, 4, 4)
		test.That(t, err, test.ShouldBeError, context.Canceled)
	})
}

func TestReprojectToGeographic(t *testing.T) {
	c := color.NRGBA{R: 1, G: 2, B: 3, A: 255}
	rect := geodesy.RectangleFromDegrees(-180, -80, 0, 80)

	out, err := ReprojectToGeographic(context.Background(), solidImage(8, c), rect)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 8)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 8)
	for y := 0; y < 8; y++ {
		test.That(t, out.NRGBAAt(3, y), test.ShouldResemble, c)
	}

	// Geographic rows near the equator sample the middle of the Mercator texture.
	striped := solidImage(8, color.NRGBA{A: 255})
	for x := 0; x < 8; x++ {
		striped.SetNRGBA(x, 0, color.NRGBA{R: 255, A: 255})
	}
	out, err = ReprojectToGeographic(context.Background(), striped, rect)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.NRGBAAt(0, 4).R, test.ShouldEqual, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReprojectToGeographic(ctx, solidImage(8, c), rect)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
