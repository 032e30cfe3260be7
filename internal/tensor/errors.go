package tensor

import "errors"

var (
	// ErrShapeMismatch reports operands whose shapes an operation cannot combine.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")
	// ErrIndex reports an out-of-range coordinate or slice.
	ErrIndex = errors.New("tensor: index out of range")
)
