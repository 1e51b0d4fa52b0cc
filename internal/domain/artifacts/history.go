package artifacts

import (
	"io"
	"path"
	"strings"
	"time"
)

// HistoryPoint is one dated score and optional price.
type HistoryPoint struct {
	D Text `json:"d"`
	S Num  `json:"s"`
	P Num  `json:"p"`
}

// TickerHistory is ticker_history/<SYMBOL>.json.
type TickerHistory struct {
	Ticker       Text           `json:"ticker"`
	Name         Text           `json:"name"`
	Sector       Text           `json:"sector"`
	CurrentScore Num            `json:"current_score"`
	Tier         Text           `json:"tier"`
	AsOf         Text           `json:"asof"`
	History      []HistoryPoint `json:"history"`
}

func DecodeTickerHistory(r io.Reader) (TickerHistory, error) {
	var h TickerHistory
	err := decode(r, TickerHistoryDir, &h)
	return h, err
}

// HistoryFile is the artifact name for symbol, upper-cased, under dir.
// An empty dir means TickerHistoryDir.
func HistoryFile(dir, symbol string) string {
	if dir == "" {
		dir = TickerHistoryDir
	}
	return path.Join(dir, strings.ToUpper(strings.TrimSpace(symbol))+".json")
}

// Timeframe is a chart window measured back from the latest point.
type Timeframe struct {
	Label string
	Days  int // 0 means unbounded
}

var timeframes = []Timeframe{
	{"3M", 90},
	{"6M", 180},
	{"1Y", 365},
	{"3Y", 1095},
	{"MAX", 0},
}

// DefaultTimeframe is the window shown first.
var DefaultTimeframe = Timeframe{"1Y", 365}

// Timeframes lists the selectable windows, shortest first.
func Timeframes() []Timeframe {
	return append([]Timeframe(nil), timeframes...)
}

// ParseTimeframe resolves a label such as "6m"; empty yields the default.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeframe, nil
	}
	for _, tf := range timeframes {
		if tf.Label == s {
			return tf, nil
		}
	}
	return Timeframe{}, ErrUnknownTimeframe
}

const day = 24 * time.Hour

func parseDate(s Text) (time.Time, bool) {
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(string(s))); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window returns the points no more than tf.Days before the last point.
// Points with unreadable dates are dropped from bounded windows.
func (h TickerHistory) Window(tf Timeframe) []HistoryPoint {
	if len(h.History) == 0 {
		return nil
	}
	if tf.Days == 0 {
		return h.History
	}
	latest, ok := parseDate(h.History[len(h.History)-1].D)
	if !ok {
		return h.History
	}
	limit := time.Duration(tf.Days) * day
	out := make([]HistoryPoint, 0, len(h.History))
	for _, p := range h.History {
		t, ok := parseDate(p.D)
		if ok && latest.Sub(t) <= limit {
			out = append(out, p)
		}
	}
	return out
}

// Change is the first-to-last move over a window.
type Change struct {
	First float64 `json:"first"`
	Last  float64 `json:"last"`
	Delta float64 `json:"delta"`
	Pct   float64 `json:"pct,omitempty"`
}

// ScoreChange compares the first and last scored points.
func ScoreChange(points []HistoryPoint) (Change, bool) {
	return change(points, func(p HistoryPoint) Num { return p.S }, false)
}

// PriceChange compares the first and last priced points, with percent move.
func PriceChange(points []HistoryPoint) (Change, bool) {
	return change(points, func(p HistoryPoint) Num { return p.P }, true)
}

func change(points []HistoryPoint, get func(HistoryPoint) Num, pct bool) (Change, bool) {
	var vals []float64
	for _, p := range points {
		if v, ok := get(p).Get(); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) < 2 {
		return Change{}, false
	}
	c := Change{First: vals[0], Last: vals[len(vals)-1]}
	c.Delta = c.Last - c.First
	if pct && c.First != 0 {
		c.Pct = c.Delta / c.First * 100
	}
	return c, true
}
