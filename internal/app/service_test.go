package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdaly0277/marketintel/internal/adapters/mq/queue"
	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/adapters/source"
	service "github.com/mdaly0277/marketintel/internal/app"
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const screenerCSV = `symbol,company_name,sector,industry,market_cap_bucket,RS_Global,price,ret_1m,asof_date,gate_pass
AAPL,Apple Inc,Technology,Hardware,mega,92,190.5,0.05,2024-05-31,true
MSFT,Microsoft,Technology,Software,mega,85,410,0.02,2024-05-31,true
XOM,Exxon Mobil,Energy,Oil & Gas,large,61,118,-0.03,2024-05-31,true
TINY,Tiny Co,Energy,Oil & Gas,micro,,2.1,,2024-05-31,true
BAD,Bad Co,Energy,Oil & Gas,small,50,5,0.1,2024-05-31,false
`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// loaded returns a service whose store already holds the fixture dataset.
func loaded(t *testing.T, opts ...service.Option) (*service.Service, *repository.SnapshotStore, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "screener.csv", screenerCSV)
	store := repository.NewSnapshotStore()
	base := []service.Option{
		service.WithFetcher(source.NewDir(dir)),
		service.WithStore(store),
		service.WithLogger(logger.Nop()),
		service.WithTopN(2),
	}
	svc := service.New(append(base, opts...)...)
	ctx := context.Background()
	gen := store.Begin(ctx)
	if err := svc.Load(ctx, queue.NewLoadRequest(gen, "test")); err != nil {
		t.Fatal(err)
	}
	return svc, store, dir
}

func TestBuild(t *testing.T) {
	Convey("Given a screener file", t, func() {
		ds := service.Build("screener.csv", []byte(screenerCSV), columns.DefaultAliases, 2)

		Convey("Then every stage has run", func() {
			So(ds.Len(), ShouldEqual, 5)
			So(ds.Source, ShouldEqual, "screener.csv")
			So(ds.Ranked, ShouldEqual, 4)
			So(ds.Header[0], ShouldEqual, "symbol")
			col, ok := ds.Mapping.Column(columns.Score)
			So(ok, ShouldBeTrue)
			So(col, ShouldEqual, "RS_Global")
			So(len(ds.Mapping.Unresolved()), ShouldEqual, 6)
			So(ds.Records[0].TopN, ShouldBeTrue)
			So(ds.Records[2].TopN, ShouldBeFalse)
			So(ds.Records[3].ScoreRank, ShouldEqual, 0)
		})
	})

	Convey("Given an empty file", t, func() {
		ds := service.Build("screener.csv", nil, columns.DefaultAliases, 2)
		So(ds.Len(), ShouldEqual, 0)
		So(ds.Ranked, ShouldEqual, 0)
	})
}

func TestService_Load(t *testing.T) {
	Convey("Given a loaded service", t, func() {
		svc, store, _ := loaded(t)
		ctx := context.Background()

		Convey("Then the screener shows ungated rows by score", func() {
			page := svc.Screener(ctx, query.Request{Sort: query.DefaultSort})
			var got []string
			for _, r := range page.Rows {
				got = append(got, r.Ticker)
			}
			So(got, ShouldResemble, []string{"AAPL", "MSFT", "XOM", "TINY"})
			So(page.Total, ShouldEqual, 5)
			So(page.Matched, ShouldEqual, 4)
			So(page.AsOf, ShouldEqual, "2024-05-31")
			So(page.Status, ShouldEqual, "ready")
			So(page.Generation, ShouldEqual, 1)
			So(page.Rows[0].Tier, ShouldEqual, "Leadership")
			So(page.Rows[0].TopN, ShouldBeTrue)
			So(page.Rows[3].Score, ShouldBeNil)
			So(page.Rows[3].Display.Score, ShouldEqual, "—")
		})

		Convey("Then paging trims the rows but not the counts", func() {
			page := svc.Screener(ctx, query.Request{Sort: query.DefaultSort, Offset: 1, Limit: 2})
			So(len(page.Rows), ShouldEqual, 2)
			So(page.Rows[0].Ticker, ShouldEqual, "MSFT")
			So(page.Matched, ShouldEqual, 4)
		})

		Convey("Then export returns every matching row", func() {
			rows := svc.Export(ctx, query.FilterState{ShowGated: true}, query.SortState{Key: query.KeyTicker, Dir: query.Asc})
			So(len(rows), ShouldEqual, 5)
			So(rows[0].Ticker, ShouldEqual, "AAPL")
			So(rows[1].Ticker, ShouldEqual, "BAD")
		})

		Convey("Then options come from the dataset", func() {
			o := svc.Options(ctx)
			So(o.Sectors, ShouldResemble, []string{"Energy", "Technology"})
			So(o.Caps, ShouldResemble, []string{"mega", "large", "small", "micro"})
			So(o.Tiers[0], ShouldEqual, "Leadership")
			So(o.Scheme, ShouldEqual, "A")
			So(o.AsOf, ShouldEqual, "2024-05-31")
			So(o.Timeframes, ShouldContain, "1Y")
		})

		Convey("Then columns report the resolution", func() {
			cols := svc.Columns(ctx)
			So(len(cols), ShouldEqual, len(columns.Fields()))
			So(cols[0].Field, ShouldEqual, "ticker")
			So(cols[0].Source, ShouldEqual, "symbol")
			So(cols[0].Resolved, ShouldBeTrue)
		})

		Convey("When a stale generation finishes after a newer request", func() {
			stale := store.Begin(ctx)
			latest := store.Begin(ctx)

			So(svc.Load(ctx, queue.NewLoadRequest(stale, "test")), ShouldBeNil)
			So(store.State(ctx).Published, ShouldEqual, 1)

			So(svc.Load(ctx, queue.NewLoadRequest(latest, "test")), ShouldBeNil)
			So(store.State(ctx).Published, ShouldEqual, latest)
		})
	})

	Convey("Given a service whose file disappears", t, func() {
		svc, store, dir := loaded(t)
		ctx := context.Background()
		So(os.Remove(filepath.Join(dir, "screener.csv")), ShouldBeNil)

		gen := store.Begin(ctx)
		err := svc.Load(ctx, queue.NewLoadRequest(gen, "test"))

		Convey("Then the load fails but the last data set stays", func() {
			So(errors.Is(err, source.ErrNotFound), ShouldBeTrue)
			st := svc.State(ctx)
			So(st.Status, ShouldEqual, repository.StatusError)
			So(st.Error, ShouldContainSubstring, "screener.csv load failed")
			page := svc.Screener(ctx, query.Request{Sort: query.DefaultSort})
			So(len(page.Rows), ShouldEqual, 4)
			So(page.Error, ShouldNotBeEmpty)
		})
	})

	Convey("Given no published data", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		ctx := context.Background()
		page := svc.Screener(ctx, query.Request{Sort: query.DefaultSort})

		So(page.Empty, ShouldEqual, string(query.NoData))
		So(page.Rows, ShouldBeEmpty)
		So(svc.Ready(ctx), ShouldBeFalse)
		So(svc.Columns(ctx)[0].Resolved, ShouldBeFalse)
		So(svc.Options(ctx).Sectors, ShouldNotBeNil)
	})
}

type gatedFetcher struct {
	data    []byte
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.data, nil
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over a data directory", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "screener.csv", screenerCSV)
		svc := service.New(
			service.WithFetcher(source.NewDir(dir)),
			service.WithLogger(logger.Nop()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("Reload before Start is refused", func() {
			_, err := svc.Reload(ctx, service.ReasonAPI)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When started, the first load is published", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			So(waitFor(func() bool { return svc.Ready(ctx) }), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["rows"], ShouldEqual, 5)

			Convey("And a reload publishes a newer generation", func() {
				req, err := svc.Reload(ctx, service.ReasonAPI)
				So(err, ShouldBeNil)
				So(req.Generation, ShouldEqual, 2)
				So(waitFor(func() bool { return svc.State(ctx).Published == 2 }), ShouldBeTrue)
			})
		})

		Convey("When stopped, stats report it", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service without a source", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		So(errors.Is(svc.Start(context.Background()), service.ErrNoSource), ShouldBeTrue)
	})
}

func TestService_LatestWins(t *testing.T) {
	Convey("Given a load that blocks while reloads pile up", t, func() {
		f := &gatedFetcher{
			data:    []byte(screenerCSV),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		svc := service.New(
			service.WithFetcher(f),
			service.WithLogger(logger.Nop()),
			service.WithQueueSize(1),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		released := false
		release := func() {
			if !released {
				released = true
				close(f.release)
			}
		}
		// Runs before Stop so the blocked load can finish.
		defer release()

		<-f.entered

		var busy error
		for i := 0; i < 5 && busy == nil; i++ {
			if _, err := svc.Reload(ctx, service.ReasonAPI); err != nil {
				busy = err
			}
		}

		Convey("Then a full queue rejects the reload", func() {
			So(errors.Is(busy, service.ErrBusy), ShouldBeTrue)
			So(errors.Is(busy, queue.ErrFull), ShouldBeTrue)
		})

		Convey("Then only the latest requested generation is published", func() {
			release()
			So(waitFor(func() bool {
				st := svc.State(ctx)
				return st.Status == repository.StatusReady && st.Published == st.Requested
			}), ShouldBeTrue)
			So(svc.State(ctx).Published, ShouldBeGreaterThan, 1)
		})
	})
}

type brokenFavorites struct {
	loadErr error
	saveErr error
	closed  atomic.Int32
}

func (b *brokenFavorites) Load(ctx context.Context) ([]string, error) { return nil, b.loadErr }
func (b *brokenFavorites) Save(ctx context.Context, t []string) error { return b.saveErr }
func (b *brokenFavorites) Close() error                               { b.closed.Add(1); return nil }

func TestService_Favorites(t *testing.T) {
	Convey("Given a service with in-memory favorites", t, func() {
		store := repository.NewMemoryFavorites()
		svc, _, _ := loaded(t, service.WithFavorites(store))
		ctx := context.Background()

		Convey("Toggling adds and removes in order and persists", func() {
			on, list, err := svc.ToggleFavorite(ctx, "AAPL")
			So(err, ShouldBeNil)
			So(on, ShouldBeTrue)
			So(list, ShouldResemble, []string{"AAPL"})

			_, _, err = svc.ToggleFavorite(ctx, " MSFT ")
			So(err, ShouldBeNil)

			on, list, err = svc.ToggleFavorite(ctx, "AAPL")
			So(err, ShouldBeNil)
			So(on, ShouldBeFalse)
			So(list, ShouldResemble, []string{"MSFT"})

			saved, err := store.Load(ctx)
			So(err, ShouldBeNil)
			So(saved, ShouldResemble, []string{"MSFT"})
		})

		Convey("Tickers are matched regardless of case", func() {
			on, list, err := svc.ToggleFavorite(ctx, "aapl")
			So(err, ShouldBeNil)
			So(on, ShouldBeTrue)
			So(list, ShouldResemble, []string{"AAPL"})

			res := svc.Query(ctx, query.FilterState{WatchlistOnly: true}, query.DefaultSort)
			So(res.Empty, ShouldEqual, query.NotEmpty)
			So(len(res.Rows), ShouldEqual, 1)
			So(res.Rows[0].Ticker, ShouldEqual, "AAPL")

			on, list, err = svc.ToggleFavorite(ctx, "AAPL")
			So(err, ShouldBeNil)
			So(on, ShouldBeFalse)
			So(list, ShouldBeEmpty)

			list, err = svc.ReplaceFavorites(ctx, []string{"xom", "XOM", "brk.b"})
			So(err, ShouldBeNil)
			So(list, ShouldResemble, []string{"XOM", "BRK.B"})
		})

		Convey("Invalid tickers are rejected", func() {
			_, _, err := svc.ToggleFavorite(ctx, "  ")
			So(errors.Is(err, service.ErrInvalidTicker), ShouldBeTrue)
			_, _, err = svc.ToggleFavorite(ctx, "../etc")
			So(errors.Is(err, service.ErrInvalidTicker), ShouldBeTrue)
		})

		Convey("Replace drops repeats and blanks", func() {
			list, err := svc.ReplaceFavorites(ctx, []string{"XOM", "XOM", " TINY "})
			So(err, ShouldBeNil)
			So(list, ShouldResemble, []string{"XOM", "TINY"})
			So(svc.Favorites(ctx), ShouldResemble, []string{"XOM", "TINY"})
		})

		Convey("The watchlist view reflects favorites", func() {
			f := query.FilterState{WatchlistOnly: true}
			So(svc.Query(ctx, f, query.DefaultSort).Empty, ShouldEqual, query.EmptyWatchlist)

			_, _, err := svc.ToggleFavorite(ctx, "XOM")
			So(err, ShouldBeNil)
			res := svc.Query(ctx, f, query.DefaultSort)
			So(len(res.Rows), ShouldEqual, 1)
			So(res.Rows[0].Ticker, ShouldEqual, "XOM")

			page := svc.Screener(ctx, query.Request{Sort: query.DefaultSort})
			So(page.Rows[2].Ticker, ShouldEqual, "XOM")
			So(page.Rows[2].Favorite, ShouldBeTrue)
			So(page.Rows[0].Favorite, ShouldBeFalse)
		})
	})

	Convey("Given a favorites store that cannot save", t, func() {
		svc := service.New(
			service.WithLogger(logger.Nop()),
			service.WithFavorites(&brokenFavorites{saveErr: errors.New("disk full")}),
		)
		_, _, err := svc.ToggleFavorite(context.Background(), "AAPL")

		Convey("Then the list is unchanged", func() {
			So(err, ShouldNotBeNil)
			So(svc.Favorites(context.Background()), ShouldBeEmpty)
		})
	})

	Convey("Given stored favorites in mixed case", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "screener.csv", screenerCSV)
		store := repository.NewMemoryFavorites()
		ctx := context.Background()
		So(store.Save(ctx, []string{"aapl", "AAPL", " msft "}), ShouldBeNil)
		svc := service.New(
			service.WithFetcher(source.NewDir(dir)),
			service.WithLogger(logger.Nop()),
			service.WithFavorites(store),
		)

		Convey("Then Start normalizes them", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			So(svc.Favorites(ctx), ShouldResemble, []string{"AAPL", "MSFT"})
		})
	})

	Convey("Given a service that fails to start", t, func() {
		ctx := context.Background()

		Convey("When favorites cannot be read, the store is closed", func() {
			favs := &brokenFavorites{loadErr: errors.New("locked")}
			svc := service.New(
				service.WithFetcher(source.NewDir(t.TempDir())),
				service.WithLogger(logger.Nop()),
				service.WithFavorites(favs),
			)
			So(svc.Start(ctx), ShouldNotBeNil)
			So(favs.closed.Load(), ShouldEqual, 1)
		})

		Convey("When no source is configured, the store is closed", func() {
			favs := &brokenFavorites{}
			svc := service.New(service.WithLogger(logger.Nop()), service.WithFavorites(favs))
			So(errors.Is(svc.Start(ctx), service.ErrNoSource), ShouldBeTrue)
			So(favs.closed.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given corrupt stored favorites", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "screener.csv", screenerCSV)
		svc := service.New(
			service.WithFetcher(source.NewDir(dir)),
			service.WithLogger(logger.Nop()),
			service.WithFavorites(&brokenFavorites{loadErr: fmt.Errorf("%w: bad json", repository.ErrCorruptFavorites)}),
		)
		ctx := context.Background()

		Convey("Then the service starts with an empty watchlist", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()
			So(svc.Favorites(ctx), ShouldBeEmpty)
		})
	})
}

// staleFetcher serves old data on its first call, held until release is
// closed, and new data on every later call.
type staleFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (f *staleFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if f.calls.Add(1) == 1 {
		<-f.release
		return []byte("symbol,RS_Global\nOLD,50\n"), nil
	}
	return []byte(screenerCSV), nil
}

func TestService_LoadReadsFresh(t *testing.T) {
	Convey("Given a load stuck on an earlier fetch", t, func() {
		fetcher := &staleFetcher{release: make(chan struct{})}
		store := repository.NewSnapshotStore()
		svc := service.New(
			service.WithFetcher(source.NewShared(fetcher)),
			service.WithStore(store),
			service.WithLogger(logger.Nop()),
		)
		ctx := context.Background()

		first := make(chan error, 1)
		gen1 := store.Begin(ctx)
		go func() { first <- svc.Load(ctx, queue.NewLoadRequest(gen1, "test")) }()
		So(waitFor(func() bool { return fetcher.calls.Load() == 1 }), ShouldBeTrue)

		Convey("A newer load fetches again and wins", func() {
			gen2 := store.Begin(ctx)
			So(svc.Load(ctx, queue.NewLoadRequest(gen2, "test")), ShouldBeNil)
			So(fetcher.calls.Load(), ShouldEqual, 2)
			So(store.Current(ctx).Len(), ShouldEqual, 5)

			close(fetcher.release)
			So(<-first, ShouldBeNil)
			So(store.Current(ctx).Len(), ShouldEqual, 5)
			So(store.State(ctx).Published, ShouldEqual, gen2)
		})
	})
}

const dashboardJSON = `{"asof":"2024-05-31","dispersion":{"spread":25},"regime":{"label":"Risk-On"}}`

const historyJSON = `{"ticker":"AAPL","current_score":92,"history":[
{"d":"2022-01-03","s":40,"p":150},
{"d":"2024-01-02","s":70,"p":180},
{"d":"2024-05-31","s":92,"p":190}]}`

func TestService_Artifacts(t *testing.T) {
	Convey("Given a data directory with artifacts", t, func() {
		dir := t.TempDir()
		writeFile(t, dir, "dashboard_data.json", dashboardJSON)
		writeFile(t, dir, "ticker_history/AAPL.json", historyJSON)
		writeFile(t, dir, "tier_backtest.json", "{")
		svc := service.New(service.WithFetcher(source.NewDir(dir)), service.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("The dashboard carries the dispersion narrative", func() {
			d, err := svc.Dashboard(ctx)
			So(err, ShouldBeNil)
			So(d.AsOf.String(), ShouldEqual, "2024-05-31")
			So(d.Narrative, ShouldContainSubstring, "Moderate")
		})

		Convey("Ticker history is windowed", func() {
			h, err := svc.TickerHistory(ctx, "aapl", "1y")
			So(err, ShouldBeNil)
			So(h.Timeframe, ShouldEqual, "1Y")
			So(len(h.Points), ShouldEqual, 2)
			So(h.ScoreChange.Delta, ShouldEqual, 22)

			h, err = svc.TickerHistory(ctx, "AAPL", "max")
			So(err, ShouldBeNil)
			So(len(h.Points), ShouldEqual, 3)
		})

		Convey("Bad requests are classified", func() {
			_, err := svc.TickerHistory(ctx, "AAPL", "2W")
			So(errors.Is(err, artifacts.ErrUnknownTimeframe), ShouldBeTrue)

			_, err = svc.TickerHistory(ctx, "A/B", "")
			So(errors.Is(err, service.ErrInvalidTicker), ShouldBeTrue)

			_, err = svc.TickerHistory(ctx, "MSFT", "")
			So(errors.Is(err, source.ErrNotFound), ShouldBeTrue)

			_, err = svc.Portfolio(ctx)
			So(errors.Is(err, source.ErrNotFound), ShouldBeTrue)

			_, err = svc.TierBacktest(ctx)
			So(errors.Is(err, artifacts.ErrMalformed), ShouldBeTrue)
		})
	})
}
