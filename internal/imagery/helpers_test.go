package imagery

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

const fakeTileSize = 4

// fakeProvider serves solid PNG tiles. Addresses in unavailable fail with
// tiling.ErrTileUnavailable; with failAll set every request fails with a transient error.
type fakeProvider struct {
	scheme tiling.Scheme
	ready  bool

	mu          sync.Mutex
	unavailable map[tiling.Address]bool
	failAll     bool
	requests    map[tiling.Address]int
}

func newFakeProvider(scheme tiling.Scheme) *fakeProvider {
	return &fakeProvider{
		scheme:      scheme,
		ready:       true,
		unavailable: make(map[tiling.Address]bool),
		requests:    make(map[tiling.Address]int),
	}
}

func (p *fakeProvider) Ready() bool                  { return p.ready }
func (p *fakeProvider) Scheme() tiling.Scheme        { return p.scheme }
func (p *fakeProvider) Rectangle() geodesy.Rectangle { return p.scheme.Rectangle() }
func (p *fakeProvider) TileWidth() int               { return fakeTileSize }
func (p *fakeProvider) TileHeight() int              { return fakeTileSize }
func (p *fakeProvider) MinimumLevel() uint32         { return 0 }
func (p *fakeProvider) MaximumLevel() uint32         { return 18 }

func (p *fakeProvider) RequestImage(_ context.Context, a tiling.Address) (RawImage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[a]++
	if p.unavailable[a] {
		return RawImage{}, tiling.ErrTileUnavailable
	}
	if p.failAll {
		return RawImage{}, context.DeadlineExceeded
	}
	return RawImage{Data: solidPNG(fakeTileSize, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), ContentType: "image/png"}, nil
}

func (p *fakeProvider) requestCount(a tiling.Address) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[a]
}

func solidPNG(size int, c color.NRGBA) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(size, size, c), imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func solidImage(size int, c color.NRGBA) *image.NRGBA {
	return imaging.New(size, size, c)
}

type fixture struct {
	provider *fakeProvider
	jobs     *worker.Manual[Result]
	registry *Registry
	layer    *Layer
}

func newFixture(scheme tiling.Scheme) *fixture {
	provider := newFakeProvider(scheme)
	jobs := worker.NewInline[Result]()
	registry := NewRegistry(jobs, logger.NewNop())
	layer := registry.NewLayer("test", provider, LayerOptions{})
	return &fixture{provider: provider, jobs: jobs, registry: registry, layer: layer}
}

// levelZeroSpacing is the texel spacing that maps to imagery level zero.
func (f *fixture) levelZeroSpacing() float64 {
	s := f.provider.scheme
	return s.Ellipsoid().MaximumRadius() * s.Rectangle().Width() /
		(float64(fakeTileSize) * float64(s.NumberOfXTilesAtLevel(0)))
}

// settle advances ti and applies completions until it reports done.
func (f *fixture) settle(t *testing.T, ti *TileImagery, rect geodesy.Rectangle) {
	t.Helper()
	for range 20 {
		done := ti.Advance(rect, false)
		f.registry.Apply(f.jobs.Poll())
		if done {
			return
		}
	}
	t.Fatal("tile imagery did not settle")
}
