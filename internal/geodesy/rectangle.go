package geodesy

import "math"

// Rectangle is a geographic extent in radians. East may be less than West when the
// rectangle crosses the antimeridian.
type Rectangle struct {
	West  float64
	South float64
	East  float64
	North float64
}

// MaxRectangle covers the whole globe.
var MaxRectangle = Rectangle{West: -math.Pi, South: -PiOver2, East: math.Pi, North: PiOver2}

func RectangleFromDegrees(west, south, east, north float64) Rectangle {
	return Rectangle{
		West:  ToRadians(west),
		South: ToRadians(south),
		East:  ToRadians(east),
		North: ToRadians(north),
	}
}

func (r Rectangle) Width() float64 {
	if r.East < r.West {
		return r.East + TwoPi - r.West
	}
	return r.East - r.West
}

func (r Rectangle) Height() float64 {
	return r.North - r.South
}

func (r Rectangle) Center() Cartographic {
	east := r.East
	if east < r.West {
		east += TwoPi
	}
	return Cartographic{
		Longitude: NegativePiToPi((r.West + east) * 0.5),
		Latitude:  (r.South + r.North) * 0.5,
	}
}

func (r Rectangle) Southwest() Cartographic {
	return Cartographic{Longitude: r.West, Latitude: r.South}
}
func (r Rectangle) Southeast() Cartographic {
	return Cartographic{Longitude: r.East, Latitude: r.South}
}
func (r Rectangle) Northwest() Cartographic {
	return Cartographic{Longitude: r.West, Latitude: r.North}
}
func (r Rectangle) Northeast() Cartographic {
	return Cartographic{Longitude: r.East, Latitude: r.North}
}

func (r Rectangle) Contains(c Cartographic) bool {
	longitude := c.Longitude
	latitude := c.Latitude
	west := r.West
	east := r.East

	if east < west {
		east += TwoPi
		if longitude < 0 {
			longitude += TwoPi
		}
	}

	return (longitude > west || EqualsEpsilon(longitude, west, Epsilon14)) &&
		(longitude < east || EqualsEpsilon(longitude, east, Epsilon14)) &&
		latitude >= r.South &&
		latitude <= r.North
}

// Intersection returns the overlap of r and other, handling rectangles that cross the
// antimeridian. ok is false when they do not overlap.
func (r Rectangle) Intersection(other Rectangle) (Rectangle, bool) {
	rectangleEast := r.East
	rectangleWest := r.West
	otherEast := other.East
	otherWest := other.West

	if rectangleEast < rectangleWest && otherEast > 0 {
		rectangleEast += TwoPi
	} else if otherEast < otherWest && rectangleEast > 0 {
		otherEast += TwoPi
	}

	if rectangleEast < rectangleWest && otherWest < 0 {
		otherWest += TwoPi
	} else if otherEast < otherWest && rectangleWest < 0 {
		rectangleWest += TwoPi
	}

	west := NegativePiToPi(math.Max(rectangleWest, otherWest))
	east := NegativePiToPi(math.Min(rectangleEast, otherEast))

	if (r.West < r.East || other.West < other.East) && east <= west {
		return Rectangle{}, false
	}

	south := math.Max(r.South, other.South)
	north := math.Min(r.North, other.North)
	if south >= north {
		return Rectangle{}, false
	}

	return Rectangle{West: west, South: south, East: east, North: north}, true
}

// SimpleIntersection intersects without antimeridian handling. Used for native
// (projected) rectangles.
func (r Rectangle) SimpleIntersection(other Rectangle) (Rectangle, bool) {
	west := math.Max(r.West, other.West)
	south := math.Max(r.South, other.South)
	east := math.Min(r.East, other.East)
	north := math.Min(r.North, other.North)

	if south >= north || west >= east {
		return Rectangle{}, false
	}

	return Rectangle{West: west, South: south, East: east, North: north}, true
}

// Subsample returns a steps×steps grid of positions over r, corners included.
func (r Rectangle) Subsample(height float64, steps int) []Cartographic {
	if steps < 2 {
		steps = 2
	}
	width := r.Width()
	out := make([]Cartographic, 0, steps*steps)
	for j := 0; j < steps; j++ {
		lat := r.South + r.Height()*float64(j)/float64(steps-1)
		for i := 0; i < steps; i++ {
			lon := NegativePiToPi(r.West + width*float64(i)/float64(steps-1))
			out = append(out, Cartographic{Longitude: lon, Latitude: lat, Height: height})
		}
	}
	return out
}
