package pull

import "errors"

// The base could not be resolved to a usable archive, from the host,
// the cache, or the registry.
var ErrBaseUnavailable = errors.New("base image unavailable")
