package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/jaennil/guide_helper/backend/globe/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/pkg/config"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n0000")

type upstream struct {
	server    *httptest.Server
	requests  atomic.Int32
	userAgent atomic.Value
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.requests.Add(1)
		u.userAgent.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngMagic)
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestFetch() *FetchUseCase {
	return NewFetchUseCase(cache.NewMapCache(), config.Upstream{
		UserAgent:      "globe-test/1.0",
		Timeout:        5 * time.Second,
		RequestsPerSec: 1000,
		Burst:          10,
	}, logger.NewNop())
}

func TestFetchReadsThroughCache(t *testing.T) {
	u := newUpstream(t)
	uc := newTestFetch()
	ctx := context.Background()

	data, contentType, err := uc.Fetch(ctx, "osm", 3, 1, 2, u.server.URL+"/3/1/2.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, pngMagic)
	test.That(t, contentType, test.ShouldEqual, "image/png")
	test.That(t, u.userAgent.Load(), test.ShouldEqual, "globe-test/1.0")
	uc.Wait()

	data, contentType, err = uc.Fetch(ctx, "osm", 3, 1, 2, u.server.URL+"/3/1/2.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, pngMagic)
	test.That(t, contentType, test.ShouldEqual, "image/png")
	test.That(t, u.requests.Load(), test.ShouldEqual, 1)

	// Same coordinates, different source.
	_, _, err = uc.Fetch(ctx, "satellite", 3, 1, 2, u.server.URL+"/3/1/2.png")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u.requests.Load(), test.ShouldEqual, 2)
	uc.Wait()
}

func TestFetchUpstreamErrors(t *testing.T) {
	u := newUpstream(t)
	uc := newTestFetch()
	ctx := context.Background()

	_, _, err := uc.Fetch(ctx, "osm", 0, 0, 0, u.server.URL+"/missing")
	test.That(t, errors.Is(err, tiling.ErrTileUnavailable), test.ShouldBeTrue)

	_, _, err = uc.Fetch(ctx, "osm", 0, 0, 1, u.server.URL+"/empty")
	test.That(t, errors.Is(err, tiling.ErrTileUnavailable), test.ShouldBeTrue)

	_, _, err = uc.Fetch(ctx, "osm", 0, 0, 2, u.server.URL+"/broken")
	test.That(t, errors.Is(err, ErrUpstreamStatus), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "500")

	// Failures are not cached.
	_, _, err = uc.Fetch(ctx, "osm", 0, 0, 0, u.server.URL+"/missing")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, u.requests.Load(), test.ShouldEqual, 4)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = uc.Fetch(canceled, "osm", 9, 9, 9, u.server.URL+"/9/9/9.png")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFetchTileBySource(t *testing.T) {
	u := newUpstream(t)
	uc := newTestFetch()
	ctx := context.Background()

	var built string
	uc.RegisterSource("osm", func(z, x, y int) string {
		built = u.server.URL + "/osm"
		return built
	})
	uc.RegisterSource("elevation", func(z, x, y int) string { return u.server.URL + "/missing" })
	test.That(t, uc.Sources(), test.ShouldResemble, []string{"elevation", "osm"})

	data, _, err := uc.FetchTile(ctx, "osm", 1, 0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, pngMagic)
	test.That(t, built, test.ShouldEqual, u.server.URL+"/osm")

	_, _, err = uc.FetchTile(ctx, "elevation", 1, 0, 1)
	test.That(t, errors.Is(err, tiling.ErrTileUnavailable), test.ShouldBeTrue)

	_, _, err = uc.FetchTile(ctx, "nope", 1, 0, 1)
	test.That(t, errors.Is(err, ErrUnknownSource), test.ShouldBeTrue)
	uc.Wait()
}
