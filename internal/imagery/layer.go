package imagery

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
	"github.com/jaennil/guide_helper/backend/globe/internal/worker"
	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
	"github.com/jaennil/guide_helper/backend/globe/pkg/metrics"
)

// reprojectionThreshold is the smallest radians-per-texel at which a Web Mercator
// texture is resampled into geographic projection. Finer textures look the same either way.
const reprojectionThreshold = 1e-5

// VisualParams are passed through to the renderer untouched.
type VisualParams struct {
	Alpha      float64 `json:"alpha"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Gamma      float64 `json:"gamma"`
}

func DefaultVisualParams() VisualParams {
	return VisualParams{Alpha: 1, Brightness: 1, Contrast: 1, Saturation: 1, Gamma: 1}
}

type LayerOptions struct {
	// Rectangle restricts the layer further than its provider's rectangle. Zero means
	// the whole globe.
	Rectangle *geodesy.Rectangle
	Show      *bool
	Params    *VisualParams
}

// Layer is one imagery source draped over the terrain, with its own imagery cache.
type Layer struct {
	id        LayerID
	name      string
	provider  Provider
	rectangle geodesy.Rectangle
	show      bool
	params    VisualParams
	baseLayer bool

	cache       *Cache
	placeholder *Imagery
	jobs        worker.Executor[Result]
	logger      logger.Logger
}

func NewLayer(name string, provider Provider, jobs worker.Executor[Result], opts LayerOptions, l logger.Logger) *Layer {
	layer := &Layer{
		id:        uuid.New(),
		name:      name,
		provider:  provider,
		rectangle: geodesy.MaxRectangle,
		show:      true,
		params:    DefaultVisualParams(),
		cache:     NewCache(provider.Scheme(), l),
		placeholder: &Imagery{
			State: StatePlaceholder,
		},
		jobs:   jobs,
		logger: l,
	}
	if opts.Rectangle != nil {
		layer.rectangle = *opts.Rectangle
	}
	if opts.Show != nil {
		layer.show = *opts.Show
	}
	if opts.Params != nil {
		layer.params = *opts.Params
	}
	return layer
}

func (l *Layer) ID() LayerID              { return l.id }
func (l *Layer) Name() string             { return l.name }
func (l *Layer) Provider() Provider       { return l.provider }
func (l *Layer) Show() bool               { return l.show }
func (l *Layer) Params() VisualParams     { return l.params }
func (l *Layer) SetParams(p VisualParams) { l.params = p }
func (l *Layer) IsBaseLayer() bool        { return l.baseLayer }
func (l *Layer) Cache() *Cache            { return l.cache }
func (l *Layer) Ready() bool              { return l.provider.Ready() }

// CreateSkeletons returns the TileImagery a terrain tile covering tileRectangle needs from
// this layer, ordered west to east then north to south. A layer whose provider is not
// ready yields a single placeholder. ok is false when the layer does not cover the tile.
func (l *Layer) CreateSkeletons(tileRectangle geodesy.Rectangle, targetGeometricError float64) ([]*TileImagery, bool) {
	if !l.Ready() {
		l.cache.AddReference(l.placeholder)
		return []*TileImagery{newTileImagery(l, l.placeholder, UVRect{}, false)}, true
	}

	scheme := l.provider.Scheme()
	useWebMercatorT := scheme.Kind() == tiling.KindWebMercator &&
		tileRectangle.North < geodesy.MaximumLatitude &&
		tileRectangle.South > -geodesy.MaximumLatitude

	imageryBounds, ok := l.provider.Rectangle().Intersection(l.rectangle)
	if !ok {
		return nil, false
	}
	rectangle, ok := tileRectangle.Intersection(imageryBounds)
	if !ok {
		if !l.baseLayer {
			return nil, false
		}
		rectangle = stretchToBounds(tileRectangle, imageryBounds)
	}

	latitudeClosestToEquator := 0.0
	if rectangle.South > 0 {
		latitudeClosestToEquator = rectangle.South
	} else if rectangle.North < 0 {
		latitudeClosestToEquator = rectangle.North
	}

	imageryLevel := l.levelWithMaximumTexelSpacing(targetGeometricError, latitudeClosestToEquator)
	if imageryLevel < 0 {
		imageryLevel = 0
	}
	level := uint32(imageryLevel)
	if level > l.provider.MaximumLevel() {
		level = l.provider.MaximumLevel()
	}
	if level < l.provider.MinimumLevel() {
		level = l.provider.MinimumLevel()
	}

	nwX, nwY, ok := scheme.PositionToTileXY(rectangle.Northwest(), level)
	if !ok {
		return nil, false
	}
	seX, seY, ok := scheme.PositionToTileXY(rectangle.Southeast(), level)
	if !ok {
		return nil, false
	}

	// Skip imagery rows and columns that overlap the tile by less than 1/512 of its size.
	veryCloseX := tileRectangle.Width() / 512
	veryCloseY := tileRectangle.Height() / 512

	nwRectangle := scheme.TileXYToRectangle(nwX, nwY, level)
	if math.Abs(nwRectangle.South-tileRectangle.North) < veryCloseY && nwY < seY {
		nwY++
	}
	if math.Abs(nwRectangle.East-tileRectangle.West) < veryCloseX && nwX < seX {
		nwX++
	}
	seRectangle := scheme.TileXYToRectangle(seX, seY, level)
	if math.Abs(seRectangle.North-tileRectangle.South) < veryCloseY && seY > nwY {
		seY--
	}
	if math.Abs(seRectangle.West-tileRectangle.East) < veryCloseX && seX > nwX {
		seX--
	}

	terrainRectangle := tileRectangle
	imageryRectangle := scheme.TileXYToRectangle(nwX, nwY, level)
	clipped, _ := imageryRectangle.Intersection(imageryBounds)
	tileXYToRectangle := scheme.TileXYToRectangle
	if useWebMercatorT {
		terrainRectangle = scheme.RectangleToNativeRectangle(terrainRectangle)
		clipped = scheme.RectangleToNativeRectangle(clipped)
		imageryBounds = scheme.RectangleToNativeRectangle(imageryBounds)
		tileXYToRectangle = scheme.TileXYToNativeRectangle
		veryCloseX = terrainRectangle.Width() / 512
		veryCloseY = terrainRectangle.Height() / 512
	}

	var minU, maxU, minV, maxV float64
	minV = 1
	if !l.baseLayer && math.Abs(clipped.West-terrainRectangle.West) >= veryCloseX {
		maxU = math.Min(1, (clipped.West-terrainRectangle.West)/terrainRectangle.Width())
	}
	if !l.baseLayer && math.Abs(clipped.North-terrainRectangle.North) >= veryCloseY {
		minV = math.Max(0, (clipped.North-terrainRectangle.South)/terrainRectangle.Height())
	}
	initialMinV := minV

	var skeletons []*TileImagery
	for i := nwX; i <= seX; i++ {
		minU = maxU

		column, ok := tileXYToRectangle(i, nwY, level).SimpleIntersection(imageryBounds)
		if !ok {
			continue
		}
		maxU = math.Min(1, (column.East-terrainRectangle.West)/terrainRectangle.Width())
		if i == seX && (l.baseLayer || math.Abs(column.East-terrainRectangle.East) < veryCloseX) {
			maxU = 1
		}

		minV = initialMinV
		for j := nwY; j <= seY; j++ {
			maxV = minV

			cell, ok := tileXYToRectangle(i, j, level).SimpleIntersection(imageryBounds)
			if !ok {
				continue
			}
			minV = math.Max(0, (cell.South-terrainRectangle.South)/terrainRectangle.Height())
			if j == seY && (l.baseLayer || math.Abs(cell.South-terrainRectangle.South) < veryCloseY) {
				minV = 0
			}

			im := l.cache.Acquire(tiling.Address{X: i, Y: j, Level: level})
			uv := UVRect{MinU: minU, MinV: minV, MaxU: maxU, MaxV: maxV}
			skeletons = append(skeletons, newTileImagery(l, im, uv, useWebMercatorT))
		}
	}
	return skeletons, true
}

// stretchToBounds clamps a tile lying outside the base layer's coverage onto the nearest
// edge of it so edge texels stretch over the rest of the globe.
func stretchToBounds(tile, bounds geodesy.Rectangle) geodesy.Rectangle {
	var r geodesy.Rectangle
	switch {
	case tile.South >= bounds.North:
		r.North, r.South = bounds.North, bounds.North
	case tile.North <= bounds.South:
		r.North, r.South = bounds.South, bounds.South
	default:
		r.South = math.Max(tile.South, bounds.South)
		r.North = math.Min(tile.North, bounds.North)
	}
	switch {
	case tile.West >= bounds.East:
		r.West, r.East = bounds.East, bounds.East
	case tile.East <= bounds.West:
		r.West, r.East = bounds.West, bounds.West
	default:
		r.West = math.Max(tile.West, bounds.West)
		r.East = math.Min(tile.East, bounds.East)
	}
	return r
}

func (l *Layer) levelWithMaximumTexelSpacing(texelSpacing, latitudeClosestToEquator float64) int {
	scheme := l.provider.Scheme()
	latitudeFactor := 1.0
	if scheme.Kind() != tiling.KindGeographic {
		latitudeFactor = math.Cos(latitudeClosestToEquator)
	}
	levelZeroMaximumTexelSpacing := scheme.Ellipsoid().MaximumRadius() * scheme.Rectangle().Width() * latitudeFactor /
		(float64(l.provider.TileWidth()) * float64(scheme.NumberOfXTilesAtLevel(0)))
	return int(math.Round(math.Log2(levelZeroMaximumTexelSpacing / texelSpacing)))
}

// TranslationAndScale maps tile texture coordinates onto the ready imagery's extent:
// (translateX, translateY, scaleX, scaleY).
type TranslationAndScale [4]float64

func (l *Layer) textureTranslationAndScale(tileRectangle geodesy.Rectangle, ready *Imagery, useWebMercatorT bool) TranslationAndScale {
	imageryRectangle := ready.Rectangle
	terrainRectangle := tileRectangle
	if useWebMercatorT {
		scheme := l.provider.Scheme()
		imageryRectangle = scheme.RectangleToNativeRectangle(imageryRectangle)
		terrainRectangle = scheme.RectangleToNativeRectangle(terrainRectangle)
	}

	terrainWidth := terrainRectangle.Width()
	terrainHeight := terrainRectangle.Height()
	scaleX := terrainWidth / imageryRectangle.Width()
	scaleY := terrainHeight / imageryRectangle.Height()
	return TranslationAndScale{
		scaleX * (terrainRectangle.West - imageryRectangle.West) / terrainWidth,
		scaleY * (terrainRectangle.South - imageryRectangle.South) / terrainHeight,
		scaleX,
		scaleY,
	}
}

// processImagery performs every transition of im that does not wait on a job.
func (l *Layer) processImagery(im *Imagery, needGeographic, skipLoading bool) {
	if im.State == StateUnloaded && !skipLoading {
		if l.submit(im, StageFetch, l.fetchTask(im)) {
			im.State = StateTransitioning
		}
	}

	if im.State == StateReceived {
		raw := im.Raw
		if l.submit(im, StageDecode, l.decodeTask(im, raw)) {
			im.State = StateTransitioning
		}
	}

	needsReprojection := im.State == StateReady && needGeographic && im.Texture == nil
	if im.State == StateTextureLoaded || needsReprojection {
		l.reproject(im, needGeographic)
	}
}

func (l *Layer) reproject(im *Imagery, needGeographic bool) {
	source := im.TextureWebMercator
	if source == nil {
		source = im.Texture
	}

	if needGeographic && source != nil && l.provider.Scheme().Kind() != tiling.KindGeographic &&
		im.Rectangle.Width()/float64(source.Bounds().Dx()) > reprojectionThreshold {
		rectangle := im.Rectangle
		task := func(ctx context.Context) Result {
			out, err := ReprojectToGeographic(ctx, source, rectangle)
			return Result{Image: out, Err: err}
		}
		// The job holds a reference so the imagery outlives it.
		l.cache.AddReference(im)
		if l.submit(im, StageReproject, task) {
			im.State = StateTransitioning
		} else {
			l.cache.Release(im)
		}
		return
	}

	if needGeographic {
		im.Texture = source
	}
	im.State = StateReady
}

func (l *Layer) submit(im *Imagery, stage Stage, task func(ctx context.Context) Result) bool {
	layerID := l.id
	address := im.Address
	serial := im.serial
	return l.jobs.Submit(func(ctx context.Context) Result {
		r := task(ctx)
		r.Layer = layerID
		r.Address = address
		r.Serial = serial
		r.Stage = stage
		return r
	})
}

func (l *Layer) fetchTask(im *Imagery) func(ctx context.Context) Result {
	address := im.Address
	return func(ctx context.Context) Result {
		raw, err := l.provider.RequestImage(ctx, address)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Raw: &raw}
	}
}

func (l *Layer) decodeTask(im *Imagery, raw *RawImage) func(ctx context.Context) Result {
	width, height := l.provider.TileWidth(), l.provider.TileHeight()
	return func(ctx context.Context) Result {
		img, err := Decode(ctx, raw, width, height)
		return Result{Image: img, Err: err}
	}
}

// Apply folds a job result into the imagery it was submitted for. It returns false when
// that imagery was freed, or freed and recreated, since.
func (l *Layer) Apply(r Result) bool {
	im, ok := l.cache.Lookup(r.Address)
	if !ok || im.serial != r.Serial || im.State != StateTransitioning {
		return false
	}

	switch r.Stage {
	case StageFetch:
		if r.Err != nil {
			if errors.Is(r.Err, tiling.ErrTileUnavailable) {
				im.State = StateInvalid
			} else {
				im.State = StateFailed
			}
			l.logFailure(r)
			return true
		}
		im.Raw = r.Raw
		im.State = StateReceived
	case StageDecode:
		im.Raw = nil
		if r.Err != nil {
			im.State = StateFailed
			l.logFailure(r)
			return true
		}
		if l.provider.Scheme().Kind() == tiling.KindWebMercator {
			im.TextureWebMercator = r.Image
		} else {
			im.Texture = r.Image
		}
		im.State = StateTextureLoaded
	case StageReproject:
		if r.Err != nil {
			im.State = StateFailed
			l.logFailure(r)
		} else {
			im.Texture = r.Image
			im.State = StateReady
		}
		l.cache.Release(im)
		if r.Err != nil {
			return true
		}
	}

	metrics.ImageryLoads.WithLabelValues(r.Stage.String(), "ok").Inc()
	return true
}

func (l *Layer) logFailure(r Result) {
	a := r.Address
	switch {
	case errors.Is(r.Err, tiling.ErrTileUnavailable):
		metrics.ImageryLoads.WithLabelValues(r.Stage.String(), "unavailable").Inc()
		l.logger.Debug("imagery tile unavailable", "layer", l.name, "level", a.Level, "x", a.X, "y", a.Y)
	case errors.Is(r.Err, context.Canceled):
		metrics.ImageryLoads.WithLabelValues(r.Stage.String(), "canceled").Inc()
		l.logger.Debug("imagery job canceled", "layer", l.name, "stage", r.Stage.String(), "level", a.Level, "x", a.X, "y", a.Y)
	default:
		metrics.ImageryLoads.WithLabelValues(r.Stage.String(), "error").Inc()
		l.logger.Warn("imagery job failed", "layer", l.name, "stage", r.Stage.String(), "level", a.Level, "x", a.X, "y", a.Y, "error", r.Err)
	}
}
