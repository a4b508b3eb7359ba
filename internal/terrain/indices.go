package terrain

import "sync"

// IndexSet is the triangulation of a regular grid plus its skirts. Sets are shared between
// every mesh with the same grid size and must not be modified.
type IndexSet struct {
	Indices                 []uint32
	IndexCountWithoutSkirts int

	WestIndicesSouthToNorth []uint32
	SouthIndicesEastToWest  []uint32
	EastIndicesNorthToSouth []uint32
	NorthIndicesWestToEast  []uint32
}

// SkirtVertexCount is the number of extra vertices placed below the grid edges.
func (s *IndexSet) SkirtVertexCount() int {
	return len(s.WestIndicesSouthToNorth) + len(s.SouthIndicesEastToWest) +
		len(s.EastIndicesNorthToSouth) + len(s.NorthIndicesWestToEast)
}

type gridSize struct {
	width  int
	height int
}

// IndexCache builds each grid size's IndexSet once. Safe for concurrent use by mesh jobs.
type IndexCache struct {
	mu     sync.Mutex
	sets   map[gridSize]*IndexSet
	builds int
}

func NewIndexCache() *IndexCache {
	return &IndexCache{sets: make(map[gridSize]*IndexSet)}
}

func (c *IndexCache) Get(width, height int) *IndexSet {
	key := gridSize{width: width, height: height}

	c.mu.Lock()
	defer c.mu.Unlock()

	if set, ok := c.sets[key]; ok {
		return set
	}
	set := buildIndexSet(width, height)
	c.sets[key] = set
	c.builds++
	return set
}

// Builds reports how many distinct sets have been triangulated.
func (c *IndexCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func buildIndexSet(width, height int) *IndexSet {
	west := make([]uint32, height)
	south := make([]uint32, width)
	east := make([]uint32, height)
	north := make([]uint32, width)

	for i := 0; i < width; i++ {
		north[i] = uint32(i)
		south[i] = uint32(width*height - 1 - i)
	}
	for i := 0; i < height; i++ {
		east[i] = uint32((i+1)*width - 1)
		west[i] = uint32((height - i - 1) * width)
	}

	gridCount := (width - 1) * (height - 1) * 6
	edgeCount := (2*width + 2*height - 4) * 6
	indices := make([]uint32, 0, gridCount+edgeCount)

	index := uint32(0)
	for j := 0; j < height-1; j++ {
		for i := 0; i < width-1; i++ {
			upperLeft := index
			lowerLeft := upperLeft + uint32(width)
			lowerRight := lowerLeft + 1
			upperRight := upperLeft + 1

			indices = append(indices, upperLeft, lowerLeft, upperRight, upperRight, lowerLeft, lowerRight)
			index++
		}
		index++
	}

	vertexIndex := uint32(width * height)
	for _, edge := range [][]uint32{west, south, east, north} {
		indices, vertexIndex = appendSkirtIndices(indices, edge, vertexIndex)
	}

	return &IndexSet{
		Indices:                 indices,
		IndexCountWithoutSkirts: gridCount,
		WestIndicesSouthToNorth: west,
		SouthIndicesEastToWest:  south,
		EastIndicesNorthToSouth: east,
		NorthIndicesWestToEast:  north,
	}
}

// appendSkirtIndices stitches an edge to its skirt vertices, which start at vertexIndex
// and follow the edge order.
func appendSkirtIndices(indices, edge []uint32, vertexIndex uint32) ([]uint32, uint32) {
	previous := edge[0]
	for _, index := range edge[1:] {
		indices = append(indices,
			previous, index, vertexIndex,
			vertexIndex, index, vertexIndex+1,
		)
		previous = index
		vertexIndex++
	}
	return indices, vertexIndex + 1
}
