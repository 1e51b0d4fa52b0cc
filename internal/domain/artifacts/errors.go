package artifacts

import "errors"

var (
	ErrMalformed        = errors.New("malformed artifact")
	ErrUnknownTimeframe = errors.New("unknown timeframe")
)
