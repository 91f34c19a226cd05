package client

import "errors"

var (
	// The daemon could not be reached on its socket.
	ErrDaemon = errors.New("daemon unreachable")

	// The daemon answered with an error.
	ErrRemote = errors.New("daemon error")
)
