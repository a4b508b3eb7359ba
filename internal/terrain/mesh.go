package terrain

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/jaennil/guide_helper/backend/globe/internal/geodesy"
	"github.com/jaennil/guide_helper/backend/globe/internal/scene"
	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// Mesh is the renderable geometry of one tile.
type Mesh struct {
	Address tiling.Address

	// Center is the origin Positions are relative to.
	Center    r3.Vector
	Positions []r3.Vector
	Indices   *IndexSet

	GridWidth   int
	GridHeight  int
	SkirtHeight float64

	MinimumHeight    float64
	MaximumHeight    float64
	BoundingSphere   scene.BoundingSphere
	OccludeePoint    r3.Vector
	HasOccludeePoint bool
}

// VertexCount includes skirt vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// MeshBuilder turns a height grid into a mesh. Implementations run on worker goroutines.
type MeshBuilder interface {
	Build(grid *HeightGrid, scheme tiling.Scheme, address tiling.Address) (*Mesh, error)
}

type HeightmapMeshBuilder struct {
	indices        *IndexCache
	geometricError func(level uint32) float64
}

var _ MeshBuilder = (*HeightmapMeshBuilder)(nil)

// NewHeightmapMeshBuilder sizes skirts from geometricError, usually the terrain
// provider's LevelMaximumGeometricError.
func NewHeightmapMeshBuilder(indices *IndexCache, geometricError func(level uint32) float64) *HeightmapMeshBuilder {
	return &HeightmapMeshBuilder{indices: indices, geometricError: geometricError}
}

func (b *HeightmapMeshBuilder) Build(grid *HeightGrid, scheme tiling.Scheme, address tiling.Address) (*Mesh, error) {
	if grid == nil {
		return nil, ErrNoGrid
	}
	if grid.Width < 2 || grid.Height < 2 || len(grid.Heights) != grid.Width*grid.Height {
		return nil, fmt.Errorf("malformed height grid %dx%d with %d samples", grid.Width, grid.Height, len(grid.Heights))
	}

	ellipsoid := scheme.Ellipsoid()
	rectangle := scheme.TileXYToRectangle(address.X, address.Y, address.Level)
	indices := b.indices.Get(grid.Width, grid.Height)
	skirtHeight := math.Min(b.geometricError(address.Level)*4, 1000)
	minimumHeight, maximumHeight := grid.MinMax()

	cartographicAt := func(column, row int, height float64) geodesy.Cartographic {
		return geodesy.Cartographic{
			Longitude: rectangle.West + rectangle.Width()*float64(column)/float64(grid.Width-1),
			Latitude:  rectangle.North - rectangle.Height()*float64(row)/float64(grid.Height-1),
			Height:    height,
		}
	}

	world := make([]r3.Vector, 0, grid.Width*grid.Height+indices.SkirtVertexCount())
	for row := 0; row < grid.Height; row++ {
		for column := 0; column < grid.Width; column++ {
			world = append(world, ellipsoid.CartographicToCartesian(cartographicAt(column, row, grid.At(column, row))))
		}
	}

	for _, edge := range [][]uint32{
		indices.WestIndicesSouthToNorth,
		indices.SouthIndicesEastToWest,
		indices.EastIndicesNorthToSouth,
		indices.NorthIndicesWestToEast,
	} {
		for _, index := range edge {
			column := int(index) % grid.Width
			row := int(index) / grid.Width
			world = append(world, ellipsoid.CartographicToCartesian(cartographicAt(column, row, grid.At(column, row)-skirtHeight)))
		}
	}

	sphere := scene.BoundingSphereFromPoints(world[:grid.Width*grid.Height])
	positions := make([]r3.Vector, len(world))
	for i, p := range world {
		positions[i] = p.Sub(sphere.Center)
	}

	corners := []r3.Vector{
		ellipsoid.CartographicToCartesian(geodesy.Cartographic{Longitude: rectangle.West, Latitude: rectangle.South, Height: maximumHeight}),
		ellipsoid.CartographicToCartesian(geodesy.Cartographic{Longitude: rectangle.East, Latitude: rectangle.South, Height: maximumHeight}),
		ellipsoid.CartographicToCartesian(geodesy.Cartographic{Longitude: rectangle.West, Latitude: rectangle.North, Height: maximumHeight}),
		ellipsoid.CartographicToCartesian(geodesy.Cartographic{Longitude: rectangle.East, Latitude: rectangle.North, Height: maximumHeight}),
	}
	occludee, hasOccludee := scene.HorizonCullingPoint(ellipsoid, sphere.Center, corners, minimumHeight)

	return &Mesh{
		Address:          address,
		Center:           sphere.Center,
		Positions:        positions,
		Indices:          indices,
		GridWidth:        grid.Width,
		GridHeight:       grid.Height,
		SkirtHeight:      skirtHeight,
		MinimumHeight:    minimumHeight,
		MaximumHeight:    maximumHeight,
		BoundingSphere:   sphere,
		OccludeePoint:    occludee,
		HasOccludeePoint: hasOccludee,
	}, nil
}
