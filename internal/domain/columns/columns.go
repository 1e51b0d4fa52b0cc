// Package columns maps the heterogeneous column names found in exports onto a
// fixed set of canonical fields.
package columns

import (
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/model"
)

// Field is a canonical column the rest of the pipeline knows about.
type Field int

const (
	Ticker Field = iota
	Name
	Sector
	Industry
	CapBucket
	Score
	Price
	AsOf
	Return5D
	Return1M
	Return3M
	Return6M
	Return12M
	Gate
	Volatility
	MaxDrawdown

	fieldCount
)

var fieldNames = [...]string{
	Ticker:      "ticker",
	Name:        "name",
	Sector:      "sector",
	Industry:    "industry",
	CapBucket:   "cap",
	Score:       "score",
	Price:       "price",
	AsOf:        "asof",
	Return5D:    "ret_5d",
	Return1M:    "ret_1m",
	Return3M:    "ret_3m",
	Return6M:    "ret_6m",
	Return12M:   "ret_12m",
	Gate:        "gate",
	Volatility:  "vol",
	MaxDrawdown: "max_dd",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// Fields returns every canonical field in resolution order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Aliases lists, per field, the accepted column names in priority order.
type Aliases map[Field][]string

// DefaultAliases merges the two historical export schemes.
var DefaultAliases = Aliases{
	Ticker:      {"ticker", "symbol"},
	Name:        {"name", "shortName", "company_name", "company"},
	Sector:      {"sector", "gics_sector"},
	Industry:    {"industry", "gics_industry"},
	CapBucket:   {"cap_bucket", "market_cap_bucket", "capBucket", "Market Cap"},
	Score:       {"RS_Global", "RS", "score", "RS Score", "RS_Score"},
	Price:       {"price", "last_price", "close", "adj_close"},
	AsOf:        {"asof_date", "as_of", "date", "asof"},
	Return5D:    {"ret_5d", "return_5d", "ret_5", "ret_1w", "ret_7d"},
	Return1M:    {"ret_1m", "return_1m", "r1m"},
	Return3M:    {"ret_3m", "return_3m", "r3m"},
	Return6M:    {"ret_6m", "return_6m", "r6m"},
	Return12M:   {"ret_12m", "return_12m", "r12m"},
	Gate:        {"gate_pass", "gate"},
	Volatility:  {"vol_63", "volatility_63d", "volatility (63d)"},
	MaxDrawdown: {"max_dd_252", "max_dd_1y", "max_drawdown_252", "Max Drawdown (1Y)"},
}

// Mapping is the outcome of resolving one data set's header.
type Mapping struct {
	cols map[Field]string
}

// Column returns the source column backing f.
func (m Mapping) Column(f Field) (string, bool) {
	c, ok := m.cols[f]
	return c, ok
}

// Resolved returns a copy of the field to column assignments.
func (m Mapping) Resolved() map[Field]string {
	out := make(map[Field]string, len(m.cols))
	for f, c := range m.cols {
		out[f] = c
	}
	return out
}

// Unresolved lists the fields with no backing column, in field order.
func (m Mapping) Unresolved() []Field {
	var out []Field
	for _, f := range Fields() {
		if _, ok := m.cols[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Resolve assigns each field the first alias present in header. Matching
// ignores case and surrounding whitespace; the returned column is the
// header's own spelling.
func Resolve(header []string, aliases Aliases) Mapping {
	m := Mapping{cols: make(map[Field]string)}
	if len(header) == 0 {
		return m
	}

	observed := make(map[string]string, len(header))
	for _, h := range header {
		observed[key(h)] = strings.TrimSpace(h)
	}

	for f, names := range aliases {
		for _, a := range names {
			if col, ok := observed[key(a)]; ok {
				m.cols[f] = col
				break
			}
		}
	}
	return m
}

// ResolveTable resolves against the table header. An empty table resolves
// nothing.
func ResolveTable(t model.Table, aliases Aliases) Mapping {
	if t.Len() == 0 {
		return Mapping{cols: map[Field]string{}}
	}
	return Resolve(t.Header, aliases)
}
