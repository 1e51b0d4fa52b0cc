package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("load queue full")
	ErrClosed = errors.New("load queue closed")
)
