//go:build globe_debug

package invariant

const debug = true
