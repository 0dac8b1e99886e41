package model

//
// Handles
//

import "fmt"

// Handle is the opaque identifier of a stream or listener owned by
// a handle table. The identifier is stable for the whole lifetime of the
// underlying socket: layering TLS on top of it (and removing it) changes
// what the handle does, never which number it is.
type Handle int64

// InvalidHandle is the value returned alongside errors.
const InvalidHandle = Handle(-1)

// String implements fmt.Stringer.
func (h Handle) String() string {
	return fmt.Sprintf("h%d", int64(h))
}
