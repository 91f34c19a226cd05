package server

import "errors"

// The daemon could not start or serve.
var ErrServer = errors.New("server error")
