package source

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// Shared coalesces concurrent fetches of the same artifact into one call to
// the underlying Fetcher and records fetch metrics. Joined callers receive
// the same slice and must not modify it.
type Shared struct {
	next  Fetcher
	group singleflight.Group
}

// NewShared wraps next.
func NewShared(next Fetcher) *Shared {
	return &Shared{next: next}
}

// Fetch joins an in-flight fetch of name or starts one. The flight outlives
// any single caller; a cancelled caller returns early without failing the
// others.
func (s *Shared) Fetch(ctx context.Context, name string) ([]byte, error) {
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(name, func() (any, error) {
		start := time.Now()
		b, err := s.next.Fetch(flight, name)
		metrics.RecordFetchLatency(name, float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordFetchError(name, StatusOf(err))
		}
		return b, err
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{Name: name, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			metrics.RecordFetchCoalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Forget detaches name from any in-flight fetch, so the next Fetch reads
// the artifact afresh instead of joining a flight started earlier.
func (s *Shared) Forget(name string) {
	s.group.Forget(name)
}
