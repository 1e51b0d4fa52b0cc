package query

import (
	"fmt"
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/tier"
)

// All disables a categorical filter.
const All = "All"

// FilterState is the full set of active filters. The zero value filters
// nothing except gated rows.
type FilterState struct {
	Search        string
	Sector        string
	Industry      string
	Cap           string
	Tier          string
	TopOnly       bool
	WatchlistOnly bool
	PinFavorites  bool
	ShowGated     bool
}

// SortKey names a sortable column.
type SortKey string

const (
	KeyTicker      SortKey = "ticker"
	KeyName        SortKey = "name"
	KeySector      SortKey = "sector"
	KeyIndustry    SortKey = "industry"
	KeyCap         SortKey = "cap"
	KeyAsOf        SortKey = "asof"
	KeyScore       SortKey = "score"
	KeyPrice       SortKey = "price"
	KeyCapRank     SortKey = "cap_rank"
	KeyReturn5D    SortKey = "ret_5d"
	KeyReturn1M    SortKey = "ret_1m"
	KeyReturn3M    SortKey = "ret_3m"
	KeyReturn6M    SortKey = "ret_6m"
	KeyReturn12M   SortKey = "ret_12m"
	KeyVolatility  SortKey = "vol"
	KeyMaxDrawdown SortKey = "max_dd"
)

var numericKeys = map[SortKey]bool{
	KeyTicker:      false,
	KeyName:        false,
	KeySector:      false,
	KeyIndustry:    false,
	KeyCap:         false,
	KeyAsOf:        false,
	KeyScore:       true,
	KeyPrice:       true,
	KeyCapRank:     true,
	KeyReturn5D:    true,
	KeyReturn1M:    true,
	KeyReturn3M:    true,
	KeyReturn6M:    true,
	KeyReturn12M:   true,
	KeyVolatility:  true,
	KeyMaxDrawdown: true,
}

// SortKeys lists every accepted key.
func SortKeys() []SortKey {
	return []SortKey{
		KeyTicker, KeyName, KeySector, KeyIndustry, KeyCap, KeyAsOf,
		KeyScore, KeyPrice, KeyCapRank,
		KeyReturn5D, KeyReturn1M, KeyReturn3M, KeyReturn6M, KeyReturn12M,
		KeyVolatility, KeyMaxDrawdown,
	}
}

// ParseSortKey validates a key name, case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := numericKeys[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
	}
	return k, nil
}

// Numeric reports whether k compares numerically.
func (k SortKey) Numeric() bool { return numericKeys[k] }

// DefaultDirection is descending for numeric keys and ascending for text.
func (k SortKey) DefaultDirection() Direction {
	if k.Numeric() {
		return Desc
	}
	return Asc
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc"; empty yields ok == false.
func ParseDirection(s string) (Direction, bool, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", false, nil
	case Asc:
		return Asc, true, nil
	case Desc:
		return Desc, true, nil
	}
	return "", false, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Opposite flips the direction.
func (d Direction) Opposite() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortState is the single active sort.
type SortState struct {
	Key SortKey
	Dir Direction
}

// DefaultSort orders by score, best first.
var DefaultSort = SortState{Key: KeyScore, Dir: Desc}

// Select returns the state after the user picks k: the same key toggles
// direction, a new key starts at its default direction.
func (s SortState) Select(k SortKey) SortState {
	if s.Key == k {
		return SortState{Key: k, Dir: s.Dir.Opposite()}
	}
	return SortState{Key: k, Dir: k.DefaultDirection()}
}

// Set is a set of favorited tickers.
type Set map[string]struct{}

// NewSet builds a Set from tickers.
func NewSet(tickers ...string) Set {
	s := make(Set, len(tickers))
	for _, t := range tickers {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(t string) bool {
	_, ok := s[t]
	return ok
}

// Query bundles everything Apply needs.
type Query struct {
	Filter    FilterState
	Sort      SortState
	Favorites Set
	Scheme    tier.Scheme
}

// Request is one screener view: filters, sort and a page window.
type Request struct {
	Filter FilterState
	Sort   SortState
	Offset int
	Limit  int // 0 means all rows
}
