package launch

import "errors"

// The process could not be launched.
var ErrLaunch = errors.New("launch failed")
