// Package format renders record values for display. Absent values always
// render as the placeholder, never as zero.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mdaly0277/marketintel/internal/domain/cell"
)

// Scale says how stored return values relate to percentages.
type Scale string

const (
	// Decimal values are fractions: 0.034 means 3.4%.
	Decimal Scale = "decimal"
	// Auto treats magnitudes above autoThreshold as already in percent.
	Auto Scale = "auto"
)

const autoThreshold = 1.5

// ParseScale validates a scale name.
func ParseScale(s string) (Scale, error) {
	switch Scale(strings.ToLower(strings.TrimSpace(s))) {
	case Decimal:
		return Decimal, nil
	case Auto:
		return Auto, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScale, s)
}

// Percent converts v to percentage points under the scale.
func (s Scale) Percent(v float64) float64 {
	if s == Auto && math.Abs(v) > autoThreshold {
		return v
	}
	return v * 100
}

// Sign classifies a return for colouring.
type Sign string

const (
	Flat     Sign = "flat"
	Positive Sign = "pos"
	Negative Sign = "neg"
)

// signBand is the dead zone, in percentage points, treated as flat.
const signBand = 0.01

// Formatted is a display string plus its sign.
type Formatted struct {
	Text string `json:"text"`
	Sign Sign   `json:"sign"`
}

// Return formats a return as "+3.4%" under scale.
func Return(v cell.Value, scale Scale) Formatted {
	n, ok := v.Float()
	if !ok {
		return Formatted{Text: cell.Placeholder, Sign: Flat}
	}
	return ReturnFloat(n, scale)
}

// ReturnFloat is Return for a known number.
func ReturnFloat(n float64, scale Scale) Formatted {
	p := scale.Percent(n)
	prefix := ""
	if p >= 0 {
		prefix = "+"
	}
	sign := Flat
	switch {
	case p > signBand:
		sign = Positive
	case p < -signBand:
		sign = Negative
	}
	return Formatted{Text: fmt.Sprintf("%s%.1f%%", prefix, p), Sign: sign}
}

// Price renders a price with thousands separators and two decimals.
func Price(v cell.Value) string {
	n, ok := v.Float()
	if !ok {
		return cell.Placeholder
	}
	return humanize.FormatFloat("#,###.##", n)
}

// Money renders a whole currency amount with thousands separators.
func Money(n float64) string {
	return "$" + humanize.FormatFloat("#,###.", math.Round(n))
}

// Score renders a score with one decimal.
func Score(v cell.Value) string {
	n, ok := v.Float()
	if !ok {
		return cell.Placeholder
	}
	return fmt.Sprintf("%.1f", n)
}

// Number renders a plain optional number with the given decimals.
func Number(v cell.Value, decimals int) string {
	n, ok := v.Float()
	if !ok {
		return cell.Placeholder
	}
	return fmt.Sprintf("%.*f", decimals, n)
}
