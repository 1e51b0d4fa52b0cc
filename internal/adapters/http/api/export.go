package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mdaly0277/marketintel/internal/domain/types"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	exportSheet = "Screener"
)

type exporter struct {
	contentType string
	write       func(io.Writer, []types.Row) error
}

var exporters = map[string]exporter{
	formatCSV:  {contentType: "text/csv; charset=utf-8", write: writeCSV},
	formatXLSX: {contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", write: writeXLSX},
}

var exportHeader = []string{
	"ticker", "name", "sector", "industry", "cap", "tier", "score", "score_rank", "top_n",
	"price", "ret_5d", "ret_1m", "ret_3m", "ret_6m", "ret_12m", "vol", "max_dd", "asof", "favorite",
}

// exportValues flattens a row in exportHeader order. Absent numbers are nil.
func exportValues(r types.Row) []any {
	num := func(p *float64) any {
		if p == nil {
			return nil
		}
		return *p
	}
	var rank any
	if r.ScoreRank > 0 {
		rank = r.ScoreRank
	}
	return []any{
		r.Ticker, r.Name, r.Sector, r.Industry, r.Cap, r.Tier, num(r.Score), rank, r.TopN,
		num(r.Price), num(r.Return5D), num(r.Return1M), num(r.Return3M), num(r.Return6M), num(r.Return12M),
		num(r.Volatility), num(r.MaxDrawdown), r.AsOf, r.Favorite,
	}
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func writeCSV(w io.Writer, rows []types.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(exportHeader))
	for _, r := range rows {
		for i, v := range exportValues(r) {
			rec[i] = csvValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rows []types.Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, exportValues(r)); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
