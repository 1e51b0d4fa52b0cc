// Package types contains the wire shapes shared by the HTTP API and the CLI.
package types

import (
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/model"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
)

// Returns holds the formatted trailing returns of a row.
type Returns struct {
	D5  format.Formatted `json:"5d"`
	M1  format.Formatted `json:"1m"`
	M3  format.Formatted `json:"3m"`
	M6  format.Formatted `json:"6m"`
	M12 format.Formatted `json:"12m"`
}

// Display holds preformatted strings; absent values are the placeholder.
type Display struct {
	Score       string  `json:"score"`
	Price       string  `json:"price"`
	Volatility  string  `json:"vol"`
	MaxDrawdown string  `json:"max_dd"`
	Returns     Returns `json:"returns"`
}

// Row is one screener row. Numeric fields are null when absent.
type Row struct {
	Ticker    string `json:"ticker"`
	Name      string `json:"name"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
	Cap       string `json:"cap"`
	CapRank   int    `json:"cap_rank"`
	AsOf      string `json:"asof,omitempty"`
	Tier      string `json:"tier,omitempty"`
	TopN      bool   `json:"top_n"`
	ScoreRank int    `json:"score_rank,omitempty"`
	Gated     bool   `json:"gated"`
	Favorite  bool   `json:"favorite"`

	Score       *float64 `json:"score"`
	Price       *float64 `json:"price"`
	Return5D    *float64 `json:"ret_5d"`
	Return1M    *float64 `json:"ret_1m"`
	Return3M    *float64 `json:"ret_3m"`
	Return6M    *float64 `json:"ret_6m"`
	Return12M   *float64 `json:"ret_12m"`
	Volatility  *float64 `json:"vol"`
	MaxDrawdown *float64 `json:"max_dd"`

	Display Display `json:"display"`
}

// NewRow renders r under the active tier scheme and return scale.
func NewRow(r *model.Record, scheme tier.Scheme, scale format.Scale, favorite bool) Row {
	row := Row{
		Ticker:      r.Ticker,
		Name:        r.Name,
		Sector:      r.Sector,
		Industry:    r.Industry,
		Cap:         r.CapBucket,
		CapRank:     r.CapRank,
		AsOf:        r.AsOf,
		TopN:        r.TopN,
		ScoreRank:   r.ScoreRank,
		Gated:       r.Gated(),
		Favorite:    favorite,
		Score:       r.Score.FloatPtr(),
		Price:       r.Price.FloatPtr(),
		Return5D:    r.Return5D.FloatPtr(),
		Return1M:    r.Return1M.FloatPtr(),
		Return3M:    r.Return3M.FloatPtr(),
		Return6M:    r.Return6M.FloatPtr(),
		Return12M:   r.Return12M.FloatPtr(),
		Volatility:  r.Volatility.FloatPtr(),
		MaxDrawdown: r.MaxDrawdown.FloatPtr(),
		Display: Display{
			Score:       format.Score(r.Score),
			Price:       format.Price(r.Price),
			Volatility:  format.Return(r.Volatility, scale).Text,
			MaxDrawdown: format.Return(r.MaxDrawdown, scale).Text,
			Returns: Returns{
				D5:  format.Return(r.Return5D, scale),
				M1:  format.Return(r.Return1M, scale),
				M3:  format.Return(r.Return3M, scale),
				M6:  format.Return(r.Return6M, scale),
				M12: format.Return(r.Return12M, scale),
			},
		},
	}
	if t, ok := scheme.ClassifyValue(r.ScoreValue()); ok {
		row.Tier = string(t)
	}
	return row
}

// Column describes how one canonical field was resolved.
type Column struct {
	Field    string `json:"field"`
	Source   string `json:"source,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Sort echoes the applied sort state.
type Sort struct {
	Key string `json:"key"`
	Dir string `json:"dir"`
}

// Screener is one page of the filtered, sorted screener view.
type Screener struct {
	Rows       []Row  `json:"rows"`
	Total      int    `json:"total"`
	Matched    int    `json:"matched"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
	Sort       Sort   `json:"sort"`
	Empty      string `json:"empty,omitempty"`
	AsOf       string `json:"asof,omitempty"`
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
}

// Options lists the values offered by the filter and sort controls.
type Options struct {
	Sectors    []string `json:"sectors"`
	Industries []string `json:"industries"`
	Caps       []string `json:"caps"`
	Tiers      []string `json:"tiers"`
	SortKeys   []string `json:"sort_keys"`
	Timeframes []string `json:"timeframes"`
	Scheme     string   `json:"scheme"`
	AsOf       string   `json:"asof,omitempty"`
}

// Favorites is the watchlist.
type Favorites struct {
	Tickers []string `json:"tickers"`
}

// Toggle reports the outcome of flipping one favorite.
type Toggle struct {
	Ticker    string   `json:"ticker"`
	Favorited bool     `json:"favorited"`
	Tickers   []string `json:"tickers"`
}

// Reload acknowledges an accepted reload request.
type Reload struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Reason     string `json:"reason"`
}

// Dashboard is dashboard_data.json plus the derived dispersion narrative.
type Dashboard struct {
	artifacts.Dashboard
	Narrative string `json:"dispersion_narrative,omitempty"`
}

// History is one ticker's history cut to a timeframe.
type History struct {
	Ticker       artifacts.Text           `json:"ticker"`
	Name         artifacts.Text           `json:"name"`
	Sector       artifacts.Text           `json:"sector"`
	Tier         artifacts.Text           `json:"tier"`
	AsOf         artifacts.Text           `json:"asof"`
	CurrentScore artifacts.Num            `json:"current_score"`
	Timeframe    string                   `json:"timeframe"`
	Points       []artifacts.HistoryPoint `json:"points"`
	ScoreChange  *artifacts.Change        `json:"score_change,omitempty"`
	PriceChange  *artifacts.Change        `json:"price_change,omitempty"`
}

// NewHistory windows h to tf.
func NewHistory(h artifacts.TickerHistory, tf artifacts.Timeframe) History {
	out := History{
		Ticker:       h.Ticker,
		Name:         h.Name,
		Sector:       h.Sector,
		Tier:         h.Tier,
		AsOf:         h.AsOf,
		CurrentScore: h.CurrentScore,
		Timeframe:    tf.Label,
		Points:       h.Window(tf),
	}
	if out.Points == nil {
		out.Points = []artifacts.HistoryPoint{}
	}
	if c, ok := artifacts.ScoreChange(out.Points); ok {
		out.ScoreChange = &c
	}
	if c, ok := artifacts.PriceChange(out.Points); ok {
		out.PriceChange = &c
	}
	return out
}
