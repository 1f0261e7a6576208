package keydb

import "errors"

var (
	ErrClosed       = errors.New("keydb: client is shut down")
	ErrHandlerPanic = errors.New("keydb: handler panicked")
)
