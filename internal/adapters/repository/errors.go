package repository

import "errors"

var (
	ErrCorruptFavorites = errors.New("stored favorites are not a JSON string array")
	ErrClosed           = errors.New("store closed")
)
