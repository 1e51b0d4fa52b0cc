// Package artifacts decodes the precomputed JSON documents published next to
// the screener export. Decoding is defensive: wrong-typed or missing fields
// read as absent instead of failing the document.
package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
)

// Standard artifact file names.
const (
	DashboardFile    = "dashboard_data.json"
	TierBacktestFile = "tier_backtest.json"
	PortfolioFile    = "model_portfolio.json"
	TickerHistoryDir = "ticker_history"
)

// decode reads one JSON document from r into v.
func decode(r io.Reader, what string, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, what, err)
	}
	return nil
}

// Regime is the market regime banner.
type Regime struct {
	Label      Text           `json:"label"`
	Detail     []RegimeDetail `json:"detail"`
	LastChange Text           `json:"last_change"`
}

type RegimeDetail struct {
	Label Text `json:"label"`
	Value Text `json:"value"`
}

// Bucket is one score-distribution band.
type Bucket struct {
	Pct   Num `json:"pct"`
	Count Num `json:"count"`
}

// Distribution maps band keys such as "90s" to buckets, plus the total count.
type Distribution struct {
	Buckets map[string]Bucket
	Total   Num
}

func (d *Distribution) UnmarshalJSON(b []byte) error {
	*d = Distribution{Buckets: map[string]Bucket{}}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for k, v := range raw {
		if k == "total" {
			_ = json.Unmarshal(v, &d.Total)
			continue
		}
		var bk Bucket
		if err := json.Unmarshal(v, &bk); err == nil {
			d.Buckets[k] = bk
		}
	}
	return nil
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Buckets)+1)
	for k, v := range d.Buckets {
		out[k] = v
	}
	out["total"] = d.Total
	return json.Marshal(out)
}

// Mover is a name entering or leaving the leadership tier.
type Mover struct {
	Ticker     Text `json:"ticker"`
	Name       Text `json:"name"`
	Score      Num  `json:"score"`
	ScoreDelta Num  `json:"score_delta"`
}

type Migration struct {
	Entering []Mover `json:"entering"`
	Exiting  []Mover `json:"exiting"`
}

type SectorScore struct {
	Sector   Text `json:"sector"`
	AvgScore Num  `json:"avg_score"`
}

// Dispersion summarises how concentrated leadership is.
type Dispersion struct {
	Top10Avg     Num `json:"top10_avg"`
	UniverseAvg  Num `json:"universe_avg"`
	Spread       Num `json:"spread"`
	StdDev       Num `json:"std_dev"`
	StdDevChange Num `json:"std_dev_change"`
}

// Narrative describes the spread between leaders and the universe.
func (d Dispersion) Narrative() string {
	s, ok := d.Spread.Get()
	switch {
	case !ok:
		return ""
	case s > 30:
		return "Leadership is narrow: high conviction concentrated in few names."
	case s > 20:
		return "Moderate concentration: leadership is selective but not extreme."
	default:
		return "Leadership is broad: scores are distributed widely across the universe."
	}
}

// Dashboard is dashboard_data.json.
type Dashboard struct {
	AsOf                Text          `json:"asof"`
	PrevAsOf            Text          `json:"prev_asof"`
	Regime              Regime        `json:"regime"`
	ScoreDistribution   Distribution  `json:"score_distribution"`
	LeadershipMigration Migration     `json:"leadership_migration"`
	SectorIntelligence  []SectorScore `json:"sector_intelligence"`
	Dispersion          Dispersion    `json:"dispersion"`
	IntelligenceBrief   Text          `json:"intelligence_brief"`
}

func DecodeDashboard(r io.Reader) (Dashboard, error) {
	var d Dashboard
	err := decode(r, DashboardFile, &d)
	return d, err
}

// TierStat is one row of a tier backtest table.
type TierStat struct {
	Tier    Text `json:"tier"`
	N       Num  `json:"n"`
	Avg     Num  `json:"avg"`
	Median  Num  `json:"median"`
	WinRate Num  `json:"win_rate"`
}

// TierBacktest is tier_backtest.json.
type TierBacktest struct {
	AsOf            Text           `json:"asof"`
	SignalDatesUsed Num            `json:"signal_dates_used"`
	Table3M         []TierStat     `json:"table_3m"`
	Table6M         []TierStat     `json:"table_6m"`
	Table12M        []TierStat     `json:"table_12m"`
	CurrentCounts   map[string]Num `json:"current_counts"`
}

// IndexTable keys rows by tier; rows without a tier are skipped and a later
// duplicate replaces an earlier one.
func IndexTable(rows []TierStat) map[string]TierStat {
	out := make(map[string]TierStat, len(rows))
	for _, r := range rows {
		if r.Tier != "" {
			out[string(r.Tier)] = r
		}
	}
	return out
}

// Horizon returns the table for "3m", "6m" or "12m".
func (t TierBacktest) Horizon(h string) ([]TierStat, bool) {
	switch h {
	case "3m":
		return t.Table3M, true
	case "6m":
		return t.Table6M, true
	case "12m":
		return t.Table12M, true
	}
	return nil, false
}

func DecodeTierBacktest(r io.Reader) (TierBacktest, error) {
	var t TierBacktest
	err := decode(r, TierBacktestFile, &t)
	return t, err
}

// Performance is a portfolio or benchmark summary block.
type Performance struct {
	AnnReturn   Num `json:"ann_return"`
	AnnVol      Num `json:"ann_vol"`
	Sharpe      Num `json:"sharpe"`
	MaxDrawdown Num `json:"max_drawdown"`
	WinRate     Num `json:"win_rate"`
	BestMonth   Num `json:"best_month"`
	WorstMonth  Num `json:"worst_month"`
	BattingAvg  Num `json:"batting_avg"`
	AvgTurnover Num `json:"avg_turnover"`
	Months      Num `json:"months"`
}

type AnnualReturn struct {
	Year      Text `json:"year"`
	Portfolio Num  `json:"portfolio"`
	Benchmark Num  `json:"benchmark"`
	Excess    Num  `json:"excess"`
}

type EquityPoint struct {
	Date      Text `json:"date"`
	Portfolio Num  `json:"portfolio"`
	Benchmark Num  `json:"benchmark"`
}

type Holding struct {
	Ticker Text `json:"ticker"`
	Name   Text `json:"name"`
	Score  Num  `json:"score"`
	Weight Num  `json:"weight"`
	Price  Num  `json:"price"`
}

// Portfolio is model_portfolio.json.
type Portfolio struct {
	Model            Text           `json:"model"`
	Weighting        Text           `json:"weighting"`
	RebalanceFreq    Text           `json:"rebalance_freq"`
	Inception        Text           `json:"inception"`
	AsOf             Text           `json:"asof"`
	NHoldings        Num            `json:"n_holdings"`
	Summary          Performance    `json:"summary"`
	BenchmarkSummary Performance    `json:"benchmark_summary"`
	AnnualReturns    []AnnualReturn `json:"annual_returns"`
	EquityCurve      []EquityPoint  `json:"equity_curve"`
	CurrentHoldings  []Holding      `json:"current_holdings"`
}

func DecodePortfolio(r io.Reader) (Portfolio, error) {
	var p Portfolio
	err := decode(r, PortfolioFile, &p)
	return p, err
}
