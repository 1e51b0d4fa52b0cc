package service

import "errors"

// Sentinel error kinds for the service.
var (
	ErrNoSource      = errors.New("no data source configured")
	ErrNotStarted    = errors.New("service not started")
	ErrBusy          = errors.New("load queue is full")
	ErrInvalidTicker = errors.New("invalid ticker")
)
