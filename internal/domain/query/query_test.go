package query_test

import (
	"testing"

	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/model"
	"github.com/mdaly0277/marketintel/internal/domain/normalize"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/ranking"
	"github.com/mdaly0277/marketintel/internal/domain/tabular"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

const fixture = `ticker,name,sector,industry,cap_bucket,RS_Global,price,ret_1m,gate_pass,asof_date
AAPL,Apple Inc,Technology,Hardware,mega,95,190.5,0.034,true,2024-05-01
MSFT,Microsoft,Technology,Software,mega,88,410,0.02,true,2024-05-01
XOM,Exxon Mobil,Energy,Oil,large,72,,-0.05,true,2024-05-01
TINY,Tiny Corp,Energy,Oil,nano,,1.2,nan,true,2024-05-01
GATE,Gated Co,Technology,Software,small,99,10,0.1,false,2024-05-01
ZZZ,Zed,,,,61,3,0.0,,2024-05-01
`

func load() []model.Record {
	t := tabular.ParseTable(fixture)
	recs := normalize.Records(t, columns.ResolveTable(t, columns.DefaultAliases))
	ranking.TagTopN(recs, 2)
	return recs
}

func tickers(rows []model.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Ticker
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	Convey("Given a normalized data set", t, func() {
		recs := load()
		base := query.Query{Scheme: tier.SchemeA}

		Convey("Gated rows are hidden by default", func() {
			res := query.Apply(recs, base)
			So(res.Total, ShouldEqual, 6)
			So(res.Matched, ShouldEqual, 5)
			So(tickers(res.Rows), ShouldNotContain, "GATE")

			q := base
			q.Filter.ShowGated = true
			So(query.Apply(recs, q).Matched, ShouldEqual, 6)
		})

		Convey("Search matches ticker or name, ignoring case", func() {
			q := base
			q.Filter.Search = "micro"
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"MSFT"})

			q.Filter.Search = "xo"
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"XOM"})
		})

		Convey("All disables a categorical filter", func() {
			q := base
			q.Filter.Sector = query.All
			So(query.Apply(recs, q).Matched, ShouldEqual, 5)

			q.Filter.Sector = "Energy"
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"XOM", "TINY"})
		})

		Convey("Unknown is a selectable sector", func() {
			q := base
			q.Filter.Sector = model.Unknown
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"ZZZ"})
		})

		Convey("Tier membership uses the active scheme", func() {
			q := base
			q.Filter.Tier = string(tier.Positive)
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"MSFT"})

			q.Scheme = tier.SchemeB
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"AAPL", "MSFT"})
		})

		Convey("Adding a filter never grows the result", func() {
			q := base
			prev := query.Apply(recs, q).Matched
			steps := []func(*query.FilterState){
				func(f *query.FilterState) { f.Sector = "Technology" },
				func(f *query.FilterState) { f.Cap = "mega" },
				func(f *query.FilterState) { f.Search = "a" },
				func(f *query.FilterState) { f.TopOnly = true },
			}
			for _, step := range steps {
				step(&q.Filter)
				n := query.Apply(recs, q).Matched
				So(n, ShouldBeLessThanOrEqualTo, prev)
				prev = n
			}
		})

		Convey("Top-N membership does not depend on filters", func() {
			q := base
			q.Filter.TopOnly = true
			q.Filter.ShowGated = true
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble, []string{"GATE", "AAPL"})

			q.Filter.Sector = "Energy"
			res := query.Apply(recs, q)
			So(res.Matched, ShouldEqual, 0)
			So(res.Empty, ShouldEqual, query.NoMatches)
		})
	})
}

func TestApplyEmptyReasons(t *testing.T) {
	Convey("Given the empty states", t, func() {
		recs := load()

		Convey("Nothing loaded is no_data", func() {
			So(query.Apply(nil, query.Query{}).Empty, ShouldEqual, query.NoData)
		})

		Convey("Watchlist-only without favorites is empty_watchlist", func() {
			q := query.Query{Filter: query.FilterState{WatchlistOnly: true}}
			So(query.Apply(recs, q).Empty, ShouldEqual, query.EmptyWatchlist)
		})

		Convey("Favorites that match nothing is no_matches", func() {
			q := query.Query{
				Filter:    query.FilterState{WatchlistOnly: true},
				Favorites: query.NewSet("NOPE"),
			}
			So(query.Apply(recs, q).Empty, ShouldEqual, query.NoMatches)
		})

		Convey("A populated result has no reason", func() {
			So(query.Apply(recs, query.Query{}).Empty, ShouldEqual, query.NotEmpty)
		})
	})
}

func TestApplySort(t *testing.T) {
	Convey("Given a sort state", t, func() {
		recs := load()
		q := query.Query{Filter: query.FilterState{ShowGated: true}}

		Convey("The default is score descending with absent scores last", func() {
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble,
				[]string{"GATE", "AAPL", "MSFT", "XOM", "ZZZ", "TINY"})
		})

		Convey("Absent values stay last in ascending order too", func() {
			q.Sort = query.SortState{Key: query.KeyScore, Dir: query.Asc}
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble,
				[]string{"ZZZ", "XOM", "MSFT", "AAPL", "GATE", "TINY"})

			q.Sort = query.SortState{Key: query.KeyPrice, Dir: query.Asc}
			rows := query.Apply(recs, q).Rows
			So(rows[len(rows)-1].Ticker, ShouldEqual, "XOM")

			q.Sort.Dir = query.Desc
			rows = query.Apply(recs, q).Rows
			So(rows[len(rows)-1].Ticker, ShouldEqual, "XOM")
		})

		Convey("Text keys compare as byte strings", func() {
			q.Sort = query.SortState{Key: query.KeyName, Dir: query.Asc}
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble,
				[]string{"AAPL", "XOM", "GATE", "MSFT", "TINY", "ZZZ"})
		})

		Convey("Ties keep input order", func() {
			q.Sort = query.SortState{Key: query.KeyAsOf, Dir: query.Desc}
			So(tickers(query.Apply(recs, q).Rows), ShouldResemble,
				[]string{"AAPL", "MSFT", "XOM", "TINY", "GATE", "ZZZ"})
		})

		Convey("Pinned favorites come first", func() {
			q.Filter.PinFavorites = true
			q.Favorites = query.NewSet("ZZZ", "MSFT")
			So(tickers(query.Apply(recs, q).Rows)[:2], ShouldResemble, []string{"MSFT", "ZZZ"})
		})

		Convey("The input is not reordered", func() {
			q.Sort = query.SortState{Key: query.KeyTicker, Dir: query.Desc}
			query.Apply(recs, q)
			So(recs[0].Ticker, ShouldEqual, "AAPL")
		})
	})
}

func TestSortState(t *testing.T) {
	Convey("Selecting sort keys", t, func() {
		s := query.DefaultSort

		Convey("The same key toggles", func() {
			s = s.Select(query.KeyScore)
			So(s.Dir, ShouldEqual, query.Asc)
			So(s.Select(query.KeyScore).Dir, ShouldEqual, query.Desc)
		})

		Convey("A new key starts at its default direction", func() {
			So(s.Select(query.KeyTicker), ShouldResemble, query.SortState{Key: query.KeyTicker, Dir: query.Asc})
			So(s.Select(query.KeyReturn1M).Dir, ShouldEqual, query.Desc)
		})
	})

	Convey("Parsing sort input", t, func() {
		k, err := query.ParseSortKey(" RET_1M ")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, query.KeyReturn1M)

		_, err = query.ParseSortKey("bogus")
		So(err, ShouldNotBeNil)

		d, ok, err := query.ParseDirection("DESC")
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)
		So(d, ShouldEqual, query.Desc)

		_, ok, err = query.ParseDirection("")
		So(err, ShouldBeNil)
		So(ok, ShouldBeFalse)
	})
}

func TestPageAndOptions(t *testing.T) {
	Convey("Given a result", t, func() {
		res := query.Apply(load(), query.Query{})

		Convey("Pages are clamped", func() {
			So(len(res.Page(0, 2)), ShouldEqual, 2)
			So(len(res.Page(4, 10)), ShouldEqual, 1)
			So(res.Page(10, 2), ShouldBeNil)
			So(len(res.Page(-1, 0)), ShouldEqual, 5)
		})
	})

	Convey("Given the option lists", t, func() {
		o := query.Options(load())

		So(o.Sectors, ShouldResemble, []string{"Energy", "Technology", "Unknown"})
		So(o.Caps, ShouldResemble, []string{"mega", "large", "small", "nano", "Unknown"})
		So(o.Industries, ShouldContain, "Software")
		So(o.AsOf, ShouldEqual, "2024-05-01")
	})
}
