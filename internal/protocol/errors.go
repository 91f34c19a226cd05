package protocol

import "errors"

// A message violated the wire format.
var ErrProtocol = errors.New("protocol error")
