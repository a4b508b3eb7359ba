package provider

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

// Template expands XYZ URL templates. Supported placeholders are {z}, {x}, {y}, {-y}
// (TMS row), {q} (Bing quadkey) and {s} (subdomain).
type Template struct {
	pattern    string
	subdomains []string
}

func NewTemplate(pattern string, subdomains []string) Template {
	return Template{pattern: pattern, subdomains: subdomains}
}

func (t Template) Expand(a tiling.Address) string {
	subdomain := ""
	if len(t.subdomains) > 0 {
		subdomain = t.subdomains[int(a.X+a.Y+a.Level)%len(t.subdomains)]
	}
	reverseY := (uint64(1) << a.Level) - 1 - uint64(a.Y)

	r := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(a.Level), 10),
		"{x}", strconv.FormatUint(uint64(a.X), 10),
		"{y}", strconv.FormatUint(uint64(a.Y), 10),
		"{-y}", strconv.FormatUint(reverseY, 10),
		"{q}", Quadkey(a),
		"{s}", subdomain,
	)
	return r.Replace(t.pattern)
}

// Quadkey formats the tile's Bing quadkey, one base-4 digit per level.
func Quadkey(a tiling.Address) string {
	if a.Level == 0 {
		return ""
	}
	tile := maptile.New(a.X, a.Y, maptile.Zoom(a.Level))
	q := strconv.FormatUint(tile.Quadkey(), 4)
	if pad := int(a.Level) - len(q); pad > 0 {
		q = strings.Repeat("0", pad) + q
	}
	return q
}

// URL expands the template for tile z/x/y.
func (t Template) URL(z, x, y int) string {
	return t.Expand(tiling.Address{X: uint32(x), Y: uint32(y), Level: uint32(z)})
}
