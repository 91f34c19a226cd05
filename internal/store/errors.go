package store

import "errors"

// The ledger could not be opened, read, or written.
var ErrLedger = errors.New("build ledger error")
