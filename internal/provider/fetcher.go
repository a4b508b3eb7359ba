// Package provider implements terrain and imagery providers on top of XYZ tile servers,
// plus an offline debug imagery source.
package provider

import "context"

// Fetcher returns raw tile bytes and their content type.
type Fetcher interface {
	Fetch(ctx context.Context, source string, z, x, y int, url string) ([]byte, string, error)
}
