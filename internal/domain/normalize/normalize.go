// Package normalize turns header-keyed raw rows into canonical records.
package normalize

import (
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/cell"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/model"
)

// Rank assigned to cap labels outside the known ladder.
const otherCapRank = 50

var capRanks = map[string]int{
	"mega":    1,
	"large":   2,
	"mid":     3,
	"small":   4,
	"micro":   5,
	"nano":    6,
	"unknown": 99,
}

// CapRank orders market-cap buckets from largest to smallest.
func CapRank(bucket string) int {
	if r, ok := capRanks[strings.ToLower(strings.TrimSpace(bucket))]; ok {
		return r
	}
	return otherCapRank
}

// Records normalizes every row of t using m. Output order matches input order
// and each record's Index is its input position.
func Records(t model.Table, m columns.Mapping) []model.Record {
	out := make([]model.Record, len(t.Rows))
	for i, raw := range t.Rows {
		out[i] = Record(i, raw, m)
	}
	return out
}

// Record normalizes a single row.
func Record(index int, raw model.RawRecord, m columns.Mapping) model.Record {
	text := func(f columns.Field) string {
		col, ok := m.Column(f)
		if !ok {
			return ""
		}
		s, _ := cell.Clean(raw[col])
		return s
	}
	label := func(f columns.Field) string {
		if s := text(f); s != "" {
			return s
		}
		return model.Unknown
	}
	value := func(f columns.Field) cell.Value {
		col, ok := m.Column(f)
		if !ok {
			return cell.Absent()
		}
		return cell.NewValue(raw[col])
	}

	r := model.Record{
		Index:       index,
		Ticker:      text(columns.Ticker),
		Name:        text(columns.Name),
		Sector:      label(columns.Sector),
		Industry:    label(columns.Industry),
		CapBucket:   label(columns.CapBucket),
		AsOf:        text(columns.AsOf),
		Gate:        strings.ToLower(text(columns.Gate)),
		Score:       value(columns.Score),
		Price:       value(columns.Price),
		Return5D:    value(columns.Return5D),
		Return1M:    value(columns.Return1M),
		Return3M:    value(columns.Return3M),
		Return6M:    value(columns.Return6M),
		Return12M:   value(columns.Return12M),
		Volatility:  value(columns.Volatility),
		MaxDrawdown: value(columns.MaxDrawdown),
		Raw:         raw,
	}
	r.CapRank = CapRank(r.CapBucket)
	return r
}
