// Package xtest holds comparison helpers shared by tests.
package xtest

import (
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// IgnoreTimes treats any two times as equal.
var IgnoreTimes = cmpopts.IgnoreTypes(time.Time{})

// Diff returns a readable diff of want and got, ignoring unexported fields
// and empty vs nil slices.
func Diff(want, got any, opts ...cmp.Option) string {
	allOpts := append([]cmp.Option{
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreUnexported(),
	}, opts...)

	return cmp.Diff(want, got, allOpts...)
}
