// Package queue carries dataset load requests to the load workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdaly0277/marketintel/pkg/metrics"
)

const defaultCapacity = 16

// LoadRequest asks for the screener dataset to be fetched and rebuilt.
type LoadRequest struct {
	ID          uuid.UUID
	Generation  uint64
	Reason      string // "startup", "api", "refresh", ...
	RequestedAt time.Time
}

// NewLoadRequest stamps a request with a fresh ID.
func NewLoadRequest(gen uint64, reason string) LoadRequest {
	return LoadRequest{
		ID:          uuid.New(),
		Generation:  gen,
		Reason:      reason,
		RequestedAt: time.Now(),
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds r without blocking. It fails with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, r LoadRequest) error

	// Dequeue returns a channel of pending requests, closed when the queue
	// closes or ctx ends.
	Dequeue(ctx context.Context) <-chan LoadRequest

	// Len returns the number of pending requests.
	Len(ctx context.Context) int

	// Full reports whether an Enqueue would fail for lack of room.
	Full(ctx context.Context) bool

	// Close stops intake; already queued requests can still be drained.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan LoadRequest
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan LoadRequest, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, r LoadRequest) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return err
	}

	select {
	case q.requests <- r:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.requests))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan LoadRequest {
	out := make(chan LoadRequest)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-q.requests:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.requests))
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.requests)
}

func (q *InMemoryQueue) Full(ctx context.Context) bool {
	return len(q.requests) >= q.capacity
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
