// Package model contains domain models passed between layers.
package model

import (
	"github.com/mdaly0277/marketintel/internal/domain/cell"
)

// Fallback label for categorical fields that are absent.
const Unknown = "Unknown"

// RawRecord maps a source column name to the raw cell text of one data row.
type RawRecord map[string]string

// Table is a parsed export: the trimmed header in source order plus one
// RawRecord per data row.
type Table struct {
	Header []string
	Rows   []RawRecord
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Record is one normalized row. String fields are trimmed and empty when
// absent; numeric fields are kept as cleaned text and converted on use.
type Record struct {
	Index int // position in the source data set

	Ticker    string
	Name      string
	Sector    string
	Industry  string
	CapBucket string
	CapRank   int
	AsOf      string
	Gate      string // lower-cased gate flag, empty when absent

	Score       cell.Value
	Price       cell.Value
	Return5D    cell.Value
	Return1M    cell.Value
	Return3M    cell.Value
	Return6M    cell.Value
	Return12M   cell.Value
	Volatility  cell.Value
	MaxDrawdown cell.Value

	// Derived over the whole data set.
	TopN      bool
	ScoreRank int // 1-based, 0 when unranked

	Raw RawRecord
}

// gateFailures are the gate values that mark a row as failing quality checks.
var gateFailures = map[string]struct{}{
	"false": {},
	"0":     {},
	"no":    {},
	"fail":  {},
}

// Gated reports whether the row failed the liquidity/data-integrity gate.
func (r *Record) Gated() bool {
	_, failed := gateFailures[r.Gate]
	return failed
}

// ScoreValue returns the numeric composite score.
func (r *Record) ScoreValue() (float64, bool) { return r.Score.Float() }
