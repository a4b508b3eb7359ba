// Package invariant reports violations of internal consistency rules. Builds tagged
// globe_debug panic on the first violation; other builds log it and let the caller hold
// the affected tile in a failed state.
package invariant

import (
	"errors"
	"fmt"

	"github.com/jaennil/guide_helper/backend/globe/pkg/logger"
)

var ErrViolation = errors.New("invariant violation")

// Violated records a violation and returns an error wrapping ErrViolation.
func Violated(l logger.Logger, msg string, keysAndValues ...any) error {
	err := fmt.Errorf("%w: %s", ErrViolation, msg)
	if debug {
		panic(fmt.Sprint(append([]any{err.Error(), " "}, keysAndValues...)...))
	}
	l.Error(err.Error(), keysAndValues...)
	return err
}
