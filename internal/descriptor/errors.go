package descriptor

import "errors"

var (
	ErrNotFound   = errors.New("descriptor file not found")
	ErrDescriptor = errors.New("invalid descriptor")
)
