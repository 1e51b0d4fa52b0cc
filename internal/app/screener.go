package service

import (
	"context"
	"time"

	"github.com/mdaly0277/marketintel/internal/adapters/repository"
	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/model"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/types"
	"github.com/mdaly0277/marketintel/pkg/metrics"
)

// Query filters and orders the published dataset. It recomputes from
// scratch on every call.
func (s *Service) Query(ctx context.Context, f query.FilterState, sort query.SortState) query.Result {
	res, _, _ := s.query(ctx, f, sort)
	return res
}

func (s *Service) query(ctx context.Context, f query.FilterState, sort query.SortState) (query.Result, *repository.Dataset, query.Set) {
	start := time.Now()
	ds := s.store.Current(ctx)
	favs := s.favoriteSet()

	var records []model.Record
	if ds != nil {
		records = ds.Records
	}
	res := query.Apply(records, query.Query{
		Filter:    f,
		Sort:      sort,
		Favorites: favs,
		Scheme:    s.scheme,
	})
	metrics.RecordQuery(string(res.Empty), float64(time.Since(start).Microseconds())/1000)
	return res, ds, favs
}

// Screener returns one rendered page of the current view.
func (s *Service) Screener(ctx context.Context, req query.Request) types.Screener {
	res, ds, favs := s.query(ctx, req.Filter, req.Sort)
	st := s.store.State(ctx)

	out := types.Screener{
		Rows:       s.render(res.Page(req.Offset, req.Limit), favs),
		Total:      res.Total,
		Matched:    res.Matched,
		Offset:     req.Offset,
		Limit:      req.Limit,
		Sort:       types.Sort{Key: string(req.Sort.Key), Dir: string(req.Sort.Dir)},
		Empty:      string(res.Empty),
		Status:     string(st.Status),
		Generation: st.Published,
		Error:      st.Error,
	}
	if ds != nil {
		out.AsOf = asOf(ds.Records)
	}
	return out
}

// Export renders every row of the current view, unpaged.
func (s *Service) Export(ctx context.Context, f query.FilterState, sort query.SortState) []types.Row {
	res, _, favs := s.query(ctx, f, sort)
	return s.render(res.Rows, favs)
}

func (s *Service) render(records []model.Record, favs query.Set) []types.Row {
	rows := make([]types.Row, len(records))
	for i := range records {
		rows[i] = types.NewRow(&records[i], s.scheme, s.scale, favs.Has(records[i].Ticker))
	}
	return rows
}

func asOf(records []model.Record) string {
	for i := range records {
		if records[i].AsOf != "" {
			return records[i].AsOf
		}
	}
	return ""
}

// Options lists the filter choices present in the published dataset.
func (s *Service) Options(ctx context.Context) types.Options {
	var records []model.Record
	if ds := s.store.Current(ctx); ds != nil {
		records = ds.Records
	}
	o := query.Options(records)

	out := types.Options{
		Sectors:    nonNil(o.Sectors),
		Industries: nonNil(o.Industries),
		Caps:       nonNil(o.Caps),
		Scheme:     s.scheme.Name,
		AsOf:       o.AsOf,
	}
	for _, t := range s.scheme.Tiers() {
		out.Tiers = append(out.Tiers, string(t))
	}
	for _, k := range query.SortKeys() {
		out.SortKeys = append(out.SortKeys, string(k))
	}
	for _, tf := range artifacts.Timeframes() {
		out.Timeframes = append(out.Timeframes, tf.Label)
	}
	return out
}

// Columns reports how each canonical field resolved against the published
// header. Before the first load nothing is resolved.
func (s *Service) Columns(ctx context.Context) []types.Column {
	var m columns.Mapping
	if ds := s.store.Current(ctx); ds != nil {
		m = ds.Mapping
	}
	fields := columns.Fields()
	out := make([]types.Column, 0, len(fields))
	for _, f := range fields {
		src, ok := m.Column(f)
		out = append(out, types.Column{Field: f.String(), Source: src, Resolved: ok})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
