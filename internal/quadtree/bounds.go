package quadtree

import (
	"math"

	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
)

// updateBoundingRegion sets the tile's height range from its own mesh or grid, else from
// the nearest ancestor that has one. With nothing loaded anywhere above it the tile is
// bounded at the ellipsoid surface.
func (e *Engine) updateBoundingRegion(t *Tile) {
	if t.region == nil {
		r := scene.NewTileBoundingRegion(e.ellipsoid, t.Rectangle, 0, 0)
		t.region = &r
		t.boundingSource = t
	}

	if mesh := t.Surface.Mesh; mesh != nil {
		if !t.boundingFromMesh {
			t.region.MinimumHeight = mesh.MinimumHeight
			t.region.MaximumHeight = mesh.MaximumHeight
			t.region.BoundingSphere = mesh.BoundingSphere
			t.region.OccludeePoint = mesh.OccludeePoint
			t.region.HasOccludeePoint = mesh.HasOccludeePoint
		}
		t.boundingFromMesh = true
		t.boundingSource = t
		return
	}
	t.boundingFromMesh = false

	if grid := t.Surface.Grid; grid != nil {
		minimum, maximum := grid.MinMax()
		t.region.SetHeights(e.ellipsoid, minimum, maximum)
		t.boundingSource = t
		return
	}

	for ancestor := t.parent; ancestor != nil; ancestor = ancestor.parent {
		if mesh := ancestor.Surface.Mesh; mesh != nil {
			t.region.SetHeights(e.ellipsoid, mesh.MinimumHeight, mesh.MaximumHeight)
			t.boundingSource = ancestor
			return
		}
		if grid := ancestor.Surface.Grid; grid != nil {
			minimum, maximum := grid.MinMax()
			t.region.SetHeights(e.ellipsoid, minimum, maximum)
			t.boundingSource = ancestor
			return
		}
	}

	t.region.SetHeights(e.ellipsoid, 0, 0)
	t.boundingSource = t
}

// computeDistance returns the distance from the camera to the tile. Heights borrowed
// from an ancestor are collapsed to whichever bound is farther from the camera, since
// the ancestor's range overstates this tile's.
func (e *Engine) computeDistance(t *Tile) float64 {
	e.updateBoundingRegion(t)

	region := *t.region
	if t.boundingSource != t {
		cameraHeight := e.camera.PositionCartographic.Height
		minimum, maximum := region.MinimumHeight, region.MaximumHeight
		if math.Abs(cameraHeight-minimum) > math.Abs(cameraHeight-maximum) {
			region.MaximumHeight = minimum
		} else {
			region.MinimumHeight = maximum
		}
	}
	return region.DistanceToCamera(e.camera)
}

func (e *Engine) computeVisibility(t *Tile) scene.Intersect {
	intersection := e.cullingVolume.ComputeVisibility(t.region.BoundingSphere)
	if intersection == scene.Outside {
		return scene.Outside
	}
	if !t.region.HasOccludeePoint {
		return intersection
	}
	if e.occluder.IsScaledSpacePointVisiblePossiblyUnderEllipsoid(t.region.OccludeePoint, t.region.MinimumHeight) {
		return intersection
	}
	return scene.Outside
}
