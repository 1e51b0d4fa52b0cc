package smoke

import (
	"cmp"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/types"
)

// verifyPage checks a screener page against the query that produced it and
// returns every violated expectation.
func verifyPage(q url.Values, page types.Screener) []string {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if page.Matched > page.Total {
		fail("matched %d exceeds total %d", page.Matched, page.Total)
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && len(page.Rows) > limit {
		fail("%d rows exceed limit %d", len(page.Rows), limit)
	}
	if page.Matched > 0 && page.Empty != "" {
		fail("empty reason %q with %d matches", page.Empty, page.Matched)
	}
	if key := q.Get("sort"); key != "" && page.Sort.Key != key {
		fail("sort echoed %q, want %q", page.Sort.Key, key)
	}
	if dir := q.Get("dir"); dir != "" && page.Sort.Dir != dir {
		fail("dir echoed %q, want %q", page.Sort.Dir, dir)
	}

	showGated := q.Get("show_gated") == "true"
	top := q.Get("top") == "true"
	needle := strings.ToUpper(q.Get("q"))
	for i, r := range page.Rows {
		if !showGated && r.Gated {
			fail("row %d %s is gated", i, r.Ticker)
		}
		if top && !r.TopN {
			fail("row %d %s is not in the top set", i, r.Ticker)
		}
		if v := q.Get("sector"); v != "" && r.Sector != v {
			fail("row %d %s sector %q, want %q", i, r.Ticker, r.Sector, v)
		}
		if v := q.Get("industry"); v != "" && r.Industry != v {
			fail("row %d %s industry %q, want %q", i, r.Ticker, r.Industry, v)
		}
		if v := q.Get("cap"); v != "" && r.Cap != v {
			fail("row %d %s cap %q, want %q", i, r.Ticker, r.Cap, v)
		}
		if v := q.Get("tier"); v != "" && r.Tier != v {
			fail("row %d %s tier %q, want %q", i, r.Ticker, r.Tier, v)
		}
		if needle != "" &&
			!strings.Contains(strings.ToUpper(r.Ticker), needle) &&
			!strings.Contains(strings.ToUpper(r.Name), needle) {
			fail("row %d %s does not contain %q", i, r.Ticker, needle)
		}
	}

	for i := 1; i < len(page.Rows); i++ {
		if c := compareRows(page.Rows[i-1], page.Rows[i], page.Sort); c > 0 {
			fail("rows %d and %d out of %s %s order", i-1, i, page.Sort.Key, page.Sort.Dir)
		}
	}
	return problems
}

// compareRows orders two rows by the echoed sort, absent values last in
// either direction.
func compareRows(a, b types.Row, s types.Sort) int {
	if av, ok := numericField(a, s.Key); ok {
		bv, _ := numericField(b, s.Key)
		return orderNullsLast(av, bv, s.Dir)
	}
	at, bt := textField(a, s.Key), textField(b, s.Key)
	return orderNullsLast(present(at), present(bt), s.Dir)
}

func present(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orderNullsLast[T cmp.Ordered](a, b *T, dir string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := cmp.Compare(*a, *b)
	if dir == "desc" {
		c = -c
	}
	return c
}

// numericField returns the value behind a numeric key; ok is false for
// text keys.
func numericField(r types.Row, key string) (*float64, bool) {
	switch key {
	case "score":
		return r.Score, true
	case "price":
		return r.Price, true
	case "cap_rank":
		v := float64(r.CapRank)
		return &v, true
	case "ret_5d":
		return r.Return5D, true
	case "ret_1m":
		return r.Return1M, true
	case "ret_3m":
		return r.Return3M, true
	case "ret_6m":
		return r.Return6M, true
	case "ret_12m":
		return r.Return12M, true
	case "vol":
		return r.Volatility, true
	case "max_dd":
		return r.MaxDrawdown, true
	}
	return nil, false
}

func textField(r types.Row, key string) string {
	switch key {
	case "ticker":
		return r.Ticker
	case "name":
		return r.Name
	case "sector":
		return r.Sector
	case "industry":
		return r.Industry
	case "cap":
		return r.Cap
	case "asof":
		return r.AsOf
	}
	return ""
}
