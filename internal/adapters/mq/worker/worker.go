// Package worker runs dataset load requests taken off the load queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/pkg/logger"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Loader performs one load: fetch, parse, resolve, normalize, rank and
// publish. It is responsible for latest-wins suppression.
type Loader interface {
	Load(ctx context.Context, r queue.LoadRequest) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, r queue.LoadRequest) error

func (f LoaderFunc) Load(ctx context.Context, r queue.LoadRequest) error { return f(ctx, r) }

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.LoadRequest
}

// Worker processes load requests until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current load.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	loader Loader
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, loader Loader, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		loader:   loader,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// The dequeue goroutine must end with this loop, not with the caller's ctx.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := w.queue.Dequeue(runCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			w.process(ctx, r)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r queue.LoadRequest) {
	start := time.Now()
	err := w.loader.Load(ctx, r)
	took := time.Since(start)
	metrics.RecordLoadLatency(float64(took.Milliseconds()))

	if err != nil {
		metrics.RecordErrorByComponent("worker", "load_error")
		w.logger.Error(ctx, "load failed",
			logger.String("request_id", r.ID.String()),
			logger.Int64("generation", int64(r.Generation)),
			logger.String("reason", r.Reason),
			logger.Error(err),
		)
		return
	}
	w.logger.Debug(ctx, "load finished",
		logger.String("request_id", r.ID.String()),
		logger.Int64("generation", int64(r.Generation)),
		logger.Duration("took", took),
	)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. Loads are mostly I/O and superseded loads
// are discarded anyway, so one worker is the default.
func NewPool(workerCount int, q Queue, loader Loader, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, loader, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Shutdown closes the queue when it can be closed and waits for every
// worker to finish its current load.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return firstErr
}
