package api

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mdaly0277/marketintel/internal/domain/artifacts"
	"github.com/mdaly0277/marketintel/internal/domain/query"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
)

const maxTickerLen = 16

// screenerParams mirrors the GET /api/screener query string.
type screenerParams struct {
	Search    string `query:"q" validate:"max=64"`
	Sector    string `query:"sector" validate:"max=128"`
	Industry  string `query:"industry" validate:"max=128"`
	Cap       string `query:"cap" validate:"max=64"`
	Tier      string `query:"tier" validate:"max=32"`
	Top       bool   `query:"top"`
	Watchlist bool   `query:"watchlist"`
	Pin       bool   `query:"pin"`
	ShowGated bool   `query:"show_gated"`
	Sort      string `query:"sort" validate:"omitempty,sortkey"`
	Dir       string `query:"dir" validate:"omitempty,oneof=asc desc"`
	Offset    int    `query:"offset" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"gte=0"`
}

type tickerParam struct {
	Ticker string `query:"ticker" validate:"required,ticker"`
}

type historyParams struct {
	Symbol    string `query:"symbol" validate:"required,ticker"`
	Timeframe string `query:"timeframe" validate:"omitempty,timeframe"`
}

type favoritesBody struct {
	Tickers []string `json:"tickers" query:"tickers" validate:"max=1000,dive,ticker"`
}

func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("ticker", isValidTicker)
	_ = v.RegisterValidation("sortkey", func(fl validator.FieldLevel) bool {
		_, err := query.ParseSortKey(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
		_, err := artifacts.ParseTimeframe(fl.Field().String())
		return err == nil
	})

	// Report query parameter names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isValidTicker accepts symbols such as "BRK.B", "^GSPC" or "EURUSD=X".
func isValidTicker(fl validator.FieldLevel) bool {
	t := strings.TrimSpace(fl.Field().String())
	if t == "" || len(t) > maxTickerLen {
		return false
	}
	for _, ch := range t {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') ||
			ch == '.' || ch == '-' || ch == '^' || ch == '=') {
			return false
		}
	}
	return true
}

// validateStruct returns ErrBadRequest describing the first failing field.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatValidationError(fe))
	}
	return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
}

func formatValidationError(err validator.FieldError) string {
	field, param := err.Field(), err.Param()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "ticker":
		return fmt.Sprintf("%s must be a valid ticker symbol", field)
	case "sortkey":
		return fmt.Sprintf("%s must be a sortable column", field)
	case "timeframe":
		return fmt.Sprintf("%s must be one of 3M, 6M, 1Y, 3Y, MAX", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func tierList(sc tier.Scheme) string {
	tiers := sc.Tiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func parseBool(v url.Values, key string) (bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, key)
	}
	return b, nil
}

func parseInt(v url.Values, key string) (int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
	}
	return n, nil
}

// parseScreener reads and validates the screener query string. An absent
// sort means score descending; an absent direction is the key's default.
func (s *Server) parseScreener(v url.Values) (query.Request, error) {
	p := screenerParams{
		Search:   v.Get("q"),
		Sector:   v.Get("sector"),
		Industry: v.Get("industry"),
		Cap:      v.Get("cap"),
		Tier:     strings.TrimSpace(v.Get("tier")),
		Sort:     v.Get("sort"),
		Dir:      strings.ToLower(strings.TrimSpace(v.Get("dir"))),
	}
	var err error
	if p.Top, err = parseBool(v, "top"); err != nil {
		return query.Request{}, err
	}
	if p.Watchlist, err = parseBool(v, "watchlist"); err != nil {
		return query.Request{}, err
	}
	if p.Pin, err = parseBool(v, "pin"); err != nil {
		return query.Request{}, err
	}
	if p.ShowGated, err = parseBool(v, "show_gated"); err != nil {
		return query.Request{}, err
	}
	if p.Offset, err = parseInt(v, "offset"); err != nil {
		return query.Request{}, err
	}
	if p.Limit, err = parseInt(v, "limit"); err != nil {
		return query.Request{}, err
	}
	if err := s.validateStruct(p); err != nil {
		return query.Request{}, err
	}
	if p.Tier != "" && p.Tier != query.All && !s.scheme.Has(tier.Tier(p.Tier)) {
		return query.Request{}, fmt.Errorf("%w: tier must be one of: %s", ErrBadRequest, tierList(s.scheme))
	}

	sort := query.DefaultSort
	if p.Sort != "" {
		key, err := query.ParseSortKey(p.Sort)
		if err != nil {
			return query.Request{}, err
		}
		sort = query.SortState{Key: key, Dir: key.DefaultDirection()}
	}
	dir, ok, err := query.ParseDirection(p.Dir)
	if err != nil {
		return query.Request{}, err
	}
	if ok {
		sort.Dir = dir
	}

	limit := p.Limit
	if limit == 0 || limit > s.maxPageLimit {
		limit = s.maxPageLimit
	}

	return query.Request{
		Filter: query.FilterState{
			Search:        p.Search,
			Sector:        p.Sector,
			Industry:      p.Industry,
			Cap:           p.Cap,
			Tier:          p.Tier,
			TopOnly:       p.Top,
			WatchlistOnly: p.Watchlist,
			PinFavorites:  p.Pin,
			ShowGated:     p.ShowGated,
		},
		Sort:   sort,
		Offset: p.Offset,
		Limit:  limit,
	}, nil
}
