package smoke

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// ErrFailed reports a run with at least one failure.
var ErrFailed = errors.New("smoke run failed")

// Run executes the complete smoke test against a running service.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting marketintel smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("queries", config.NumQueries),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: wait for a published dataset
	if err := waitReady(ctx, client, config.ReadyWait); err != nil {
		return stats, fmt.Errorf("service readiness check failed: %w", err)
	}

	// Step 2: discover filter choices and a few tickers
	var opts types.Options
	if err := client.getJSON(ctx, "/api/screener/options", nil, &opts); err != nil {
		return stats, fmt.Errorf("options: %w", err)
	}
	var first types.Screener
	if err := client.getJSON(ctx, "/api/screener", url.Values{"limit": {"50"}}, &first); err != nil {
		return stats, fmt.Errorf("first page: %w", err)
	}
	tickers := make([]string, 0, len(first.Rows))
	for _, r := range first.Rows {
		tickers = append(tickers, r.Ticker)
	}

	// Step 3: generate and run queries concurrently
	queries := generateQueries(ctx, config, newGenerator(config.Seed, opts, tickers), stats)
	if err := runQueries(ctx, config, client, queries, stats); err != nil {
		return stats, err
	}

	// Step 4: favorites round trip
	if config.Favorites && len(tickers) > 0 {
		stats.Checks++
		if err := checkFavorites(ctx, client, tickers[0]); err != nil {
			stats.Failures = append(stats.Failures, Failure{Check: "favorites", Detail: err.Error()})
		}
	}

	// Step 5: export agrees with the screener
	if config.Export {
		stats.Checks++
		if err := checkExport(ctx, client, first.Matched); err != nil {
			stats.Failures = append(stats.Failures, Failure{Check: "export", Detail: err.Error()})
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if err := saveReport(ctx, config, stats); err != nil {
		log.Warn(ctx, "failed to save report", logger.Error(err))
	}
	displayFinalStats(ctx, stats)

	if len(stats.Failures) > 0 {
		return stats, fmt.Errorf("%w: %d failures", ErrFailed, len(stats.Failures))
	}
	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

// waitReady polls /healthz until the service reports a dataset.
func waitReady(ctx context.Context, client *httpClient, wait time.Duration) error {
	logger.Get().Info(ctx, "checking service health")

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var last error
	for {
		var health struct {
			Ready bool `json:"ready"`
		}
		err := client.getJSON(ctx, "/healthz", nil, &health)
		switch {
		case err == nil && health.Ready:
			logger.Get().Info(ctx, "service is ready")
			return nil
		case err == nil:
			last = errors.New("no dataset published")
		case ctx.Err() == nil || last == nil:
			// Keep the last real answer rather than our own deadline.
			last = err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ctx.Err(), last)
		case <-ticker.C:
		}
	}
}

// runQueries issues queries with at most config.Workers in flight and
// verifies each page.
func runQueries(ctx context.Context, config *Config, client *httpClient, queries []url.Values, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "running screener queries", logger.Int("queries", len(queries)), logger.Int("workers", config.Workers))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))

	for _, q := range queries {
		g.Go(func() error {
			var page types.Screener
			err := client.getJSON(gctx, "/api/screener", q, &page)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			var problems []string
			if err == nil {
				problems = verifyPage(q, page)
			}
			if config.Verbose {
				log.Debug(gctx, "query", logger.String("query", q.Encode()), logger.Int("rows", len(page.Rows)))
			}

			mu.Lock()
			defer mu.Unlock()
			stats.QueriesSent++
			if err != nil {
				stats.QueriesFailed++
				stats.Failures = append(stats.Failures, Failure{Check: "request", Query: q.Encode(), Detail: err.Error()})
				return nil
			}
			stats.QueriesOK++
			stats.RowsSeen += len(page.Rows)
			if len(page.Rows) == 0 {
				stats.EmptyPages++
			}
			for _, p := range problems {
				stats.Failures = append(stats.Failures, Failure{Check: "page", Query: q.Encode(), Detail: p})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("queries interrupted: %w", err)
	}
	return nil
}

// checkExport downloads the CSV export of the default view and compares
// its row count with the screener's match count.
func checkExport(ctx context.Context, client *httpClient, matched int) error {
	data, err := client.do(ctx, http.MethodGet, "/api/screener/export", url.Values{"format": {"csv"}}, nil)
	if err != nil {
		return err
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return errors.New("export has no header")
	}
	if got := len(records) - 1; got != matched {
		return fmt.Errorf("export has %d rows, screener matched %d", got, matched)
	}
	return nil
}

// saveReport writes stats as JSON when a report file is configured.
func saveReport(ctx context.Context, config *Config, stats *Stats) error {
	if config.ReportFile == "" {
		return nil
	}
	if dir := filepath.Dir(config.ReportFile); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(config.ReportFile, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Get().Info(ctx, "report saved", logger.String("filename", config.ReportFile))
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, qps float64
	if stats.QueriesSent > 0 {
		successRate = float64(stats.QueriesOK) / float64(stats.QueriesSent) * percentageMultiplier
	}
	if stats.Duration > 0 {
		qps = float64(stats.QueriesSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("queriesGenerated", stats.QueriesGenerated),
		logger.Int("queriesSent", stats.QueriesSent),
		logger.Int("queriesFailed", stats.QueriesFailed),
		logger.String("rowsSeen", humanize.Comma(int64(stats.RowsSeen))),
		logger.Int("emptyPages", stats.EmptyPages),
		logger.Int("failures", len(stats.Failures)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.String("queriesPerSecond", humanize.FormatFloat("#,###.##", qps)))

	for i, f := range stats.Failures {
		if i == maxLoggedFailures {
			logger.Get().Warn(ctx, "more failures omitted", logger.Int("omitted", len(stats.Failures)-i))
			break
		}
		logger.Get().Warn(ctx, "failure", logger.String("check", f.Check), logger.String("query", f.Query), logger.String("detail", f.Detail))
	}
}
