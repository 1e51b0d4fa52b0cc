package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// SnapshotStore is the in-memory Store. Readers load the published dataset
// through an atomic pointer and never block on loads.
type SnapshotStore struct {
	current atomic.Pointer[Dataset]

	mu        sync.Mutex
	requested uint64
	published uint64
	status    Status
	lastErr   error
	updatedAt time.Time

	now func() time.Time
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{status: StatusIdle, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.updatedAt = s.now()
	return s
}

func (s *SnapshotStore) Begin(ctx context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested++
	s.status = StatusLoading
	s.updatedAt = s.now()
	return s.requested
}

func (s *SnapshotStore) Publish(ctx context.Context, gen uint64, ds *Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.requested || ds == nil {
		_ = metrics.RecordLoad(metrics.OutcomeDiscarded)
		return false
	}
	ds.Generation = gen
	s.current.Store(ds)
	s.published = gen
	s.status = StatusReady
	s.lastErr = nil
	s.updatedAt = s.now()

	_ = metrics.RecordLoad(metrics.OutcomePublished)
	metrics.UpdateDataset(gen, ds.Len(), ds.Ranked, len(ds.Mapping.Unresolved()), s.updatedAt.Unix())
	return true
}

func (s *SnapshotStore) Fail(ctx context.Context, gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.requested {
		_ = metrics.RecordLoad(metrics.OutcomeDiscarded)
		return false
	}
	s.status = StatusError
	s.lastErr = err
	s.updatedAt = s.now()
	_ = metrics.RecordLoad(metrics.OutcomeFailed)
	return true
}

func (s *SnapshotStore) Current(ctx context.Context) *Dataset {
	return s.current.Load()
}

func (s *SnapshotStore) State(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Status:    s.status,
		Requested: s.requested,
		Published: s.published,
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}
