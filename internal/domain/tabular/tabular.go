// Package tabular parses comma-separated exports into rows and header-keyed
// records. Parsing is permissive: malformed quoting degrades to a best-effort
// result and never returns an error.
package tabular

import (
	"strings"

	"github.com/mdaly0277/marketintel/internal/domain/model"
)

const (
	quote     = '"'
	separator = ','
	newline   = '\n'
	carriage  = '\r'
)

// Parse splits text into rows of fields.
//
// Inside a quoted field a doubled quote decodes to one literal quote; any other
// quote closes the field. Outside quotes a quote opens quoting, a comma ends the
// field and a newline ends the record. Carriage returns are always dropped. An
// unterminated quote swallows the rest of the input into the current field.
// A final row made of a single blank field is not emitted.
func Parse(text string) [][]string {
	var (
		rows  [][]string
		cur   []string
		field strings.Builder
		inQ   bool
	)

	pushField := func() {
		cur = append(cur, field.String())
		field.Reset()
	}
	pushRow := func() {
		if len(cur) == 1 && strings.TrimSpace(cur[0]) == "" {
			cur = nil
			return
		}
		rows = append(rows, cur)
		cur = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == carriage {
			continue
		}
		if inQ {
			if c == quote {
				if i+1 < len(text) && text[i+1] == quote {
					field.WriteByte(quote)
					i++
				} else {
					inQ = false
				}
			} else {
				field.WriteByte(c)
			}
			continue
		}
		switch c {
		case quote:
			inQ = true
		case separator:
			pushField()
		case newline:
			pushField()
			pushRow()
		default:
			field.WriteByte(c)
		}
	}
	pushField()
	pushRow()

	return rows
}

// ParseTable parses text and keys every data row by the trimmed header.
// Input with fewer than two rows (header only, or nothing) yields an empty
// table. Short rows read as empty cells; cells past the header are dropped.
// When a header name repeats, the right-most column wins.
func ParseTable(text string) model.Table {
	rows := Parse(text)
	if len(rows) < 2 {
		return model.Table{}
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	out := make([]model.RawRecord, 0, len(rows)-1)
	for _, r := range rows[1:] {
		rec := make(model.RawRecord, len(header))
		for i, h := range header {
			if i < len(r) {
				rec[h] = r[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return model.Table{Header: header, Rows: out}
}
