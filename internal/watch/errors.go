package watch

import "errors"

var (
	// The watch could not be established.
	ErrWatch = errors.New("watch error")

	// Cancel cause when a watched path changed.
	ErrChanged = errors.New("watched path changed")
)
