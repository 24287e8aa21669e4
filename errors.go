// errors.go defines public error types for the dsdpack package.

package dsdpack

import "errors"

// Public error types for packing operations.
var (
	// ErrBufferTooSmall indicates the destination block buffer cannot
	// hold even the verbatim representation of the samples. The outer
	// chunk size has not been advanced when this is returned.
	ErrBufferTooSmall = errors.New("dsdpack: destination buffer too small for block")

	// ErrUnevenStereo indicates a stereo block whose sample count is
	// odd. Stereo samples must strictly alternate left and right.
	ErrUnevenStereo = errors.New("dsdpack: stereo block requires an even sample count")
)

// errOverflow is the tagged in-band signal that a mode encoder could
// not fit the coded stream into its byte budget. It never escapes
// PackBlock: the framer recovers by storing the block verbatim.
var errOverflow = errors.New("dsdpack: coded stream exceeds budget")
