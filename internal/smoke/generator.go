package smoke

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"

	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// Probabilities of setting each optional parameter on a generated query.
const (
	pSector    = 0.4
	pIndustry  = 0.15
	pCap       = 0.25
	pTier      = 0.25
	pSearch    = 0.2
	pTop       = 0.15
	pShowGated = 0.3
	pSort      = 0.8
	pDir       = 0.5
	pOffset    = 0.2
)

var directions = []string{"asc", "desc"}

// generator builds random screener queries from the served options.
type generator struct {
	rnd     *rand.Rand
	opts    types.Options
	tickers []string
}

func newGenerator(seed uint64, opts types.Options, tickers []string) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{
		rnd:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		opts:    opts,
		tickers: tickers,
	}
}

func (g *generator) chance(p float64) bool { return g.rnd.Float64() < p }

func (g *generator) pick(choices []string) (string, bool) {
	if len(choices) == 0 {
		return "", false
	}
	return choices[g.rnd.IntN(len(choices))], true
}

// query returns one random parameter set. Watchlist and pin are left to
// the favorites check, which controls the favorites list.
func (g *generator) query() url.Values {
	q := url.Values{}
	set := func(p float64, key string, choices []string) {
		if !g.chance(p) {
			return
		}
		if v, ok := g.pick(choices); ok {
			q.Set(key, v)
		}
	}

	set(pSector, "sector", g.opts.Sectors)
	set(pIndustry, "industry", g.opts.Industries)
	set(pCap, "cap", g.opts.Caps)
	set(pTier, "tier", g.opts.Tiers)
	set(pSort, "sort", g.opts.SortKeys)
	if q.Has("sort") {
		set(pDir, "dir", directions)
	}

	if g.chance(pSearch) {
		if t, ok := g.pick(g.tickers); ok && t != "" {
			// A prefix keeps the search broad enough to match something.
			n := 1 + g.rnd.IntN(len(t))
			q.Set("q", t[:n])
		}
	}
	if g.chance(pTop) {
		q.Set("top", "true")
	}
	if g.chance(pShowGated) {
		q.Set("show_gated", "true")
	}
	if g.chance(pOffset) {
		q.Set("offset", strconv.Itoa(g.rnd.IntN(maxPageLimit)))
	}
	q.Set("limit", strconv.Itoa(1+g.rnd.IntN(maxPageLimit)))
	return q
}

// generateQueries creates config.NumQueries queries.
func generateQueries(ctx context.Context, config *Config, g *generator, stats *Stats) []url.Values {
	logger.Get().Info(ctx, "generating screener queries", logger.Int("numQueries", config.NumQueries))

	out := make([]url.Values, config.NumQueries)
	for i := range out {
		out[i] = g.query()
	}
	stats.QueriesGenerated = len(out)
	return out
}
