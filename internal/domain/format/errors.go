package format

import "errors"

var ErrUnknownScale = errors.New("unknown return scale")
