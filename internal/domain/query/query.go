// Package query filters, sorts and pages normalized records. Every call
// recomputes from the full record set; nothing is cached between calls.
package query

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/cell"
	"github.com/mdaly0277/marketintel/internal/domain/model"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
)

// EmptyReason explains an empty result.
type EmptyReason string

const (
	NotEmpty       EmptyReason = ""
	NoData         EmptyReason = "no_data"
	EmptyWatchlist EmptyReason = "empty_watchlist"
	NoMatches      EmptyReason = "no_matches"
)

// Result is the filtered, ordered view.
type Result struct {
	Rows    []model.Record
	Total   int // rows in the data set
	Matched int // rows passing the filters
	Empty   EmptyReason
}

// Page returns rows[offset:offset+limit], clamped. A non-positive limit
// returns everything from offset.
func (r Result) Page(offset, limit int) []model.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Rows) {
		return nil
	}
	end := len(r.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return r.Rows[offset:end]
}

// Apply filters records and orders the survivors. The input slice is not
// modified.
func Apply(records []model.Record, q Query) Result {
	res := Result{Total: len(records)}
	if len(records) == 0 {
		res.Empty = NoData
		return res
	}
	if q.Filter.WatchlistOnly && len(q.Favorites) == 0 {
		res.Empty = EmptyWatchlist
		return res
	}

	match := matcher(q)
	rows := make([]model.Record, 0, len(records))
	for i := range records {
		if match(&records[i]) {
			rows = append(rows, records[i])
		}
	}
	res.Matched = len(rows)
	if len(rows) == 0 {
		res.Empty = NoMatches
		return res
	}

	s := q.Sort
	if s.Key == "" {
		s = DefaultSort
	}
	if s.Dir == "" {
		s.Dir = s.Key.DefaultDirection()
	}
	pin := q.Filter.WatchlistOnly || q.Filter.PinFavorites
	byKey := comparator(s)
	slices.SortStableFunc(rows, func(a, b model.Record) int {
		if pin {
			fa, fb := q.Favorites.Has(a.Ticker), q.Favorites.Has(b.Ticker)
			if fa != fb {
				if fa {
					return -1
				}
				return 1
			}
		}
		return byKey(&a, &b)
	})

	res.Rows = rows
	return res
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != All
}

// matcher composes every active filter with AND.
func matcher(q Query) func(*model.Record) bool {
	f := q.Filter
	var preds []func(*model.Record) bool

	if !f.ShowGated {
		preds = append(preds, func(r *model.Record) bool { return !r.Gated() })
	}
	if needle := strings.ToUpper(strings.TrimSpace(f.Search)); needle != "" {
		preds = append(preds, func(r *model.Record) bool {
			return strings.Contains(strings.ToUpper(r.Ticker), needle) ||
				strings.Contains(strings.ToUpper(r.Name), needle)
		})
	}
	if active(f.Sector) {
		preds = append(preds, func(r *model.Record) bool { return r.Sector == f.Sector })
	}
	if active(f.Industry) {
		preds = append(preds, func(r *model.Record) bool { return r.Industry == f.Industry })
	}
	if active(f.Cap) {
		preds = append(preds, func(r *model.Record) bool { return r.CapBucket == f.Cap })
	}
	if active(f.Tier) {
		want := tier.Tier(f.Tier)
		scheme := q.Scheme
		preds = append(preds, func(r *model.Record) bool {
			t, ok := scheme.ClassifyValue(r.ScoreValue())
			return ok && t == want
		})
	}
	if f.TopOnly {
		preds = append(preds, func(r *model.Record) bool { return r.TopN })
	}
	if f.WatchlistOnly {
		preds = append(preds, func(r *model.Record) bool { return q.Favorites.Has(r.Ticker) })
	}

	return func(r *model.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func numeric(k SortKey) func(*model.Record) (float64, bool) {
	v := func(get func(*model.Record) cell.Value) func(*model.Record) (float64, bool) {
		return func(r *model.Record) (float64, bool) { return get(r).Float() }
	}
	switch k {
	case KeyScore:
		return v(func(r *model.Record) cell.Value { return r.Score })
	case KeyPrice:
		return v(func(r *model.Record) cell.Value { return r.Price })
	case KeyCapRank:
		return func(r *model.Record) (float64, bool) { return float64(r.CapRank), true }
	case KeyReturn5D:
		return v(func(r *model.Record) cell.Value { return r.Return5D })
	case KeyReturn1M:
		return v(func(r *model.Record) cell.Value { return r.Return1M })
	case KeyReturn3M:
		return v(func(r *model.Record) cell.Value { return r.Return3M })
	case KeyReturn6M:
		return v(func(r *model.Record) cell.Value { return r.Return6M })
	case KeyReturn12M:
		return v(func(r *model.Record) cell.Value { return r.Return12M })
	case KeyVolatility:
		return v(func(r *model.Record) cell.Value { return r.Volatility })
	case KeyMaxDrawdown:
		return v(func(r *model.Record) cell.Value { return r.MaxDrawdown })
	}
	return nil
}

func text(k SortKey) func(*model.Record) (string, bool) {
	get := func(s string) (string, bool) { return s, s != "" }
	switch k {
	case KeyTicker:
		return func(r *model.Record) (string, bool) { return get(r.Ticker) }
	case KeyName:
		return func(r *model.Record) (string, bool) { return get(r.Name) }
	case KeySector:
		return func(r *model.Record) (string, bool) { return get(r.Sector) }
	case KeyIndustry:
		return func(r *model.Record) (string, bool) { return get(r.Industry) }
	case KeyCap:
		return func(r *model.Record) (string, bool) { return get(r.CapBucket) }
	case KeyAsOf:
		return func(r *model.Record) (string, bool) { return get(r.AsOf) }
	}
	return nil
}

// nullsLast orders present values in dir and puts absent values after every
// present one regardless of direction.
func nullsLast[T cmp.Ordered](a T, aok bool, b T, bok bool, dir Direction) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	c := cmp.Compare(a, b)
	if dir == Desc {
		c = -c
	}
	return c
}

func comparator(s SortState) func(a, b *model.Record) int {
	if get := numeric(s.Key); get != nil {
		return func(a, b *model.Record) int {
			av, aok := get(a)
			bv, bok := get(b)
			return nullsLast(av, aok, bv, bok, s.Dir)
		}
	}
	if get := text(s.Key); get != nil {
		return func(a, b *model.Record) int {
			av, aok := get(a)
			bv, bok := get(b)
			return nullsLast(av, aok, bv, bok, s.Dir)
		}
	}
	return func(a, b *model.Record) int { return 0 }
}

// OptionSet holds the choices offered by the filter controls.
type OptionSet struct {
	Sectors    []string
	Industries []string
	Caps       []string // largest bucket first
	AsOf       string
}

// Options collects the distinct categorical values and the first non-empty
// as-of date.
func Options(records []model.Record) OptionSet {
	sectors := map[string]struct{}{}
	industries := map[string]struct{}{}
	capRank := map[string]int{}
	var o OptionSet
	for i := range records {
		r := &records[i]
		sectors[r.Sector] = struct{}{}
		industries[r.Industry] = struct{}{}
		capRank[r.CapBucket] = r.CapRank
		if o.AsOf == "" {
			o.AsOf = r.AsOf
		}
	}
	o.Sectors = sortedKeys(sectors)
	o.Industries = sortedKeys(industries)

	o.Caps = make([]string, 0, len(capRank))
	for c := range capRank {
		if c != "" {
			o.Caps = append(o.Caps, c)
		}
	}
	sort.Slice(o.Caps, func(i, j int) bool {
		a, b := o.Caps[i], o.Caps[j]
		if capRank[a] != capRank[b] {
			return capRank[a] < capRank[b]
		}
		return a < b
	})
	return o
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
