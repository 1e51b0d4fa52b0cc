package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/normalize"
	"github.com/mdaly0277/marketintel/internal/domain/ranking"
	"github.com/mdaly0277/marketintel/internal/domain/tabular"
	"github.com/mdaly0277/marketintel/pkg/logger"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// Load reasons.
const (
	ReasonStartup = "startup"
	ReasonAPI     = "api"
	ReasonRefresh = "refresh"
)

// Build runs parse, resolve, normalize and rank over one screener file.
// It never fails: malformed input yields fewer rows or absent values.
func Build(name string, data []byte, aliases columns.Aliases, topN int) *repository.Dataset {
	t := tabular.ParseTable(string(data))
	m := columns.ResolveTable(t, aliases)
	records := normalize.Records(t, m)
	ranked := ranking.TagTopN(records, topN)
	return &repository.Dataset{
		ID:       uuid.New(),
		Source:   name,
		Header:   t.Header,
		Mapping:  m,
		Records:  records,
		Ranked:   ranked,
		LoadedAt: time.Now(),
	}
}

// Reload requests a fresh load of the screener file. It fails with ErrBusy
// when the load queue has no room.
func (s *Service) Reload(ctx context.Context, reason string) (queue.LoadRequest, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return queue.LoadRequest{}, ErrNotStarted
	}
	return s.enqueueLoad(ctx, q, reason)
}

func (s *Service) enqueueLoad(ctx context.Context, q queue.Queue, reason string) (queue.LoadRequest, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// Checked before Begin so a rejected reload does not supersede the
	// load already queued.
	if q.Full(ctx) {
		metrics.RecordReloadRejected("queue_full")
		return queue.LoadRequest{}, fmt.Errorf("%w: %w", ErrBusy, queue.ErrFull)
	}

	gen := s.store.Begin(ctx)
	req := queue.NewLoadRequest(gen, reason)
	if err := q.Enqueue(ctx, req); err != nil {
		metrics.RecordReloadRejected("enqueue")
		s.store.Fail(ctx, gen, err)
		return req, fmt.Errorf("enqueue load: %w", err)
	}
	s.logger.Debug(ctx, "load queued",
		logger.String("request_id", req.ID.String()),
		logger.Int64("generation", int64(gen)),
		logger.String("reason", reason),
	)
	return req, nil
}

// Load implements worker.Loader. A load that finishes after a newer one was
// requested is discarded, not published.
func (s *Service) Load(ctx context.Context, r queue.LoadRequest) error {
	start := time.Now()
	name := s.files.Screener

	// Each generation reads the file itself rather than joining a fetch
	// that began before it was requested.
	if f, ok := s.fetcher.(interface{ Forget(name string) }); ok {
		f.Forget(name)
	}
	data, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		s.store.Fail(ctx, r.Generation, err)
		return fmt.Errorf("fetch %s: %w", name, err)
	}

	ds := Build(name, data, s.aliases, s.topN)
	ds.ID = r.ID
	if !s.store.Publish(ctx, r.Generation, ds) {
		s.logger.Info(ctx, "load superseded, result discarded",
			logger.Int64("generation", int64(r.Generation)),
			logger.String("reason", r.Reason),
		)
		return nil
	}

	unresolved := ds.Mapping.Unresolved()
	fields := []logger.Field{
		logger.Int64("generation", int64(r.Generation)),
		logger.String("reason", r.Reason),
		logger.Int("rows", ds.Len()),
		logger.Int("ranked", ds.Ranked),
		logger.Int("unresolved", len(unresolved)),
		logger.Duration("took", time.Since(start)),
	}
	if len(unresolved) > 0 {
		names := make([]string, len(unresolved))
		for i, f := range unresolved {
			names[i] = f.String()
		}
		fields = append(fields, logger.Any("unresolved_fields", names))
	}
	s.logger.Info(ctx, "dataset published", fields...)
	return nil
}

func (s *Service) refreshLoop(ctx context.Context, q queue.Queue) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.enqueueLoad(ctx, q, ReasonRefresh); err != nil {
				s.logger.Warn(ctx, "periodic reload skipped", logger.Error(err))
			}
		}
	}
}
