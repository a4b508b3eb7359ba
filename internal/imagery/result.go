package imagery

import (
	"image"

	"github.com/jaennil/guide_helper/backend/globe/internal/tiling"
)

type Stage int

const (
	StageFetch Stage = iota
	StageDecode
	StageReproject
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageDecode:
		return "decode"
	default:
		return "reproject"
	}
}

// Result is delivered by the worker pool for one imagery job. Layer and Serial identify
// the imagery incarnation that submitted it.
type Result struct {
	Layer   LayerID
	Address tiling.Address
	Serial  uint64
	Stage   Stage
	Raw     *RawImage
	Image   *image.NRGBA
	Err     error
}
