package terrain

import "errors"

var (
	ErrNotAChild = errors.New("address is not a child of the parent tile")
	ErrNoGrid    = errors.New("tile has no height grid")
)
