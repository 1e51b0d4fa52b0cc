package source

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("artifact not found")
	ErrBadStatus   = errors.New("unexpected response status")
	ErrInvalidName = errors.New("invalid artifact name")
	ErrInvalidBase = errors.New("invalid base url")
	ErrTooLarge    = errors.New("artifact too large")
)

// FetchError reports a failed artifact fetch. Status is the HTTP status when
// the failure came from a response, 0 otherwise.
type FetchError struct {
	Name   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s load failed (%d)", e.Name, e.Status)
	}
	return fmt.Sprintf("%s load failed: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}
