// Package ranking derives whole-set rank annotations. It runs once per data
// set, before any filter, so a row's top-N membership never depends on what
// the user is currently looking at.
package ranking

import (
	"sort"

	"github.com/mdaly0277/marketintel/internal/domain/model"
)

// DefaultTopN is the size of the leader set.
const DefaultTopN = 100

// TagTopN sets ScoreRank on every ranked record and TopN on the first n.
// Records without a ticker or numeric score are left unranked. Ties keep
// input order. It returns the number of ranked records.
func TagTopN(records []model.Record, n int) int {
	type scored struct {
		pos   int
		score float64
	}
	ranked := make([]scored, 0, len(records))
	for i := range records {
		records[i].TopN = false
		records[i].ScoreRank = 0
		if records[i].Ticker == "" {
			continue
		}
		if s, ok := records[i].ScoreValue(); ok {
			ranked = append(ranked, scored{pos: i, score: s})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	for rank, s := range ranked {
		r := &records[s.pos]
		r.ScoreRank = rank + 1
		r.TopN = rank < n
	}
	return len(ranked)
}
