// Command screen runs screener queries against a local CSV file without
// starting the HTTP service.
//
// Usage:
//
//	screen run data/screener.csv --sector Technology --sort ret_1m --limit 20
//	screen columns data/screener.csv
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	service "github.com/mdaly0277/marketintel/internal/app"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/ranking"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
	"github.com/mdaly0277/marketintel/internal/domain/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runOptions holds the flags of the run command.
type runOptions struct {
	filter    query.FilterState
	favorites []string
	sortKey   string
	sortDir   string
	offset    int
	limit     int
	topN      int
	scheme    string
	scale     string
	json      bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "screen",
		Short:        "Query a screener CSV from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newColumnsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Filter, sort and print screener rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd.OutOrStdout(), args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.filter.Search, "query", "q", "", "ticker or name substring")
	f.StringVar(&o.filter.Sector, "sector", "", "exact sector")
	f.StringVar(&o.filter.Industry, "industry", "", "exact industry")
	f.StringVar(&o.filter.Cap, "cap", "", "exact cap bucket")
	f.StringVar(&o.filter.Tier, "tier", "", "tier label")
	f.BoolVar(&o.filter.TopOnly, "top", false, "only the top N by score")
	f.BoolVar(&o.filter.WatchlistOnly, "watchlist", false, "only --fav tickers")
	f.BoolVar(&o.filter.PinFavorites, "pin", false, "list --fav tickers first")
	f.BoolVar(&o.filter.ShowGated, "show-gated", false, "include rows that failed the quality gate")
	f.StringSliceVar(&o.favorites, "fav", nil, "favorite tickers")
	f.StringVar(&o.sortKey, "sort", "", "sort key (default score)")
	f.StringVar(&o.sortDir, "dir", "", "asc or desc (default depends on key)")
	f.IntVar(&o.offset, "offset", 0, "rows to skip")
	f.IntVar(&o.limit, "limit", 0, "rows to print, 0 for all")
	f.IntVar(&o.topN, "top-n", ranking.DefaultTopN, "size of the top N set")
	f.StringVar(&o.scheme, "scheme", tier.SchemeA.Name, "tier scheme: A or B")
	f.StringVar(&o.scale, "scale", string(format.Decimal), "return scale: decimal or auto")
	f.BoolVar(&o.json, "json", false, "print rows as JSON")
	return cmd
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <file>",
		Short: "Show how header columns resolve to fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ds := service.Build(args[0], data, columns.DefaultAliases, ranking.DefaultTopN)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tCOLUMN")
			for _, f := range columns.Fields() {
				src, ok := ds.Mapping.Column(f)
				if !ok {
					src = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", f, src)
			}
			return w.Flush()
		},
	}
}

func runScreen(out io.Writer, path string, o runOptions) error {
	scheme, err := tier.Lookup(o.scheme)
	if err != nil {
		return err
	}
	scale, err := format.ParseScale(o.scale)
	if err != nil {
		return err
	}
	sort, err := parseSort(o.sortKey, o.sortDir)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ds := service.Build(path, data, columns.DefaultAliases, o.topN)

	favs := make([]string, 0, len(o.favorites))
	for _, t := range o.favorites {
		favs = append(favs, strings.ToUpper(strings.TrimSpace(t)))
	}
	favSet := query.NewSet(favs...)

	res := query.Apply(ds.Records, query.Query{
		Filter:    o.filter,
		Sort:      sort,
		Favorites: favSet,
		Scheme:    scheme,
	})

	page := res.Page(o.offset, o.limit)
	rows := make([]types.Row, 0, len(page))
	for i := range page {
		rows = append(rows, types.NewRow(&page[i], scheme, scale, favSet.Has(page[i].Ticker)))
	}

	if o.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if res.Empty != query.NotEmpty {
		_, err := fmt.Fprintln(out, emptyMessage(res.Empty))
		return err
	}
	return printRows(out, rows, res)
}

func parseSort(key, dir string) (query.SortState, error) {
	st := query.DefaultSort
	if key != "" {
		k, err := query.ParseSortKey(key)
		if err != nil {
			return st, err
		}
		st = query.SortState{Key: k, Dir: k.DefaultDirection()}
	}
	d, ok, err := query.ParseDirection(dir)
	if err != nil {
		return st, err
	}
	if ok {
		st.Dir = d
	}
	return st, nil
}

func emptyMessage(r query.EmptyReason) string {
	switch r {
	case query.NoData:
		return "no data"
	case query.EmptyWatchlist:
		return "watchlist is empty"
	default:
		return "no rows match"
	}
}

func printRows(out io.Writer, rows []types.Row, res query.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tTICKER\tNAME\tSECTOR\tSCORE\tTIER\tPRICE\t1M\t3M\t12M\t")
	for _, r := range rows {
		mark := ""
		if r.Favorite {
			mark = "*"
		}
		if r.TopN {
			mark += "#"
		}
		d := r.Display
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			mark, r.Ticker, r.Name, r.Sector, d.Score, tierLabel(r.Tier), d.Price,
			d.Returns.M1.Text, d.Returns.M3.Text, d.Returns.M12.Text)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d of %d rows\n", res.Matched, res.Total)
	return err
}

func tierLabel(t string) string {
	if t == "" {
		return "-"
	}
	return t
}
