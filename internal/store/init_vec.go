//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Marks sqlite-vec as an auto-load extension on the cgo driver so
	// vec0-backed deployments keep native similarity search.
	vec.Auto()
}
