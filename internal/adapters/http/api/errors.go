package api

import (
	"errors"
	"net/http"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/internal/adapters/source"
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/query"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrRateLimited       = errors.New("reload rate limit exceeded")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// statusFor maps an error to its HTTP status and envelope code.
func statusFor(err error) (int, string) {
	var fe *source.FetchError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, query.ErrUnknownSortKey),
		errors.Is(err, query.ErrUnknownDirection),
		errors.Is(err, artifacts.ErrUnknownTimeframe),
		errors.Is(err, source.ErrInvalidName):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, artifacts.ErrMalformed), errors.As(err, &fe):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
