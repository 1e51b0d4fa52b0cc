// Package cell holds the shared cleaning and numeric coercion rules applied to
// raw text cells coming out of CSV/JSON exports.
package cell

import (
	"math"
	"strconv"
	"strings"
)

// Placeholder is rendered wherever a value is absent.
const Placeholder = "—"

// sentinels are tokens that mean "no data" once trimmed and lower-cased.
var sentinels = map[string]struct{}{
	"":          {},
	"nan":       {},
	"null":      {},
	"none":      {},
	"undefined": {},
}

// IsSentinel reports whether s is blank or one of the no-data tokens.
func IsSentinel(s string) bool {
	_, ok := sentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Clean trims s and collapses sentinel tokens to absent.
func Clean(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if IsSentinel(t) {
		return "", false
	}
	return t, true
}

// Number is the single numeric coercion routine. Absent, unparseable and
// non-finite input all yield ok == false; it never substitutes zero.
func Number(s string) (float64, bool) {
	t, ok := Clean(s)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Value is a cleaned cell whose numeric form is computed on demand.
// The zero Value is absent.
type Value struct {
	text    string
	present bool
}

// NewValue cleans s into a Value.
func NewValue(s string) Value {
	t, ok := Clean(s)
	return Value{text: t, present: ok}
}

// Absent returns the absent Value.
func Absent() Value { return Value{} }

// Present reports whether the cell held anything other than a sentinel.
func (v Value) Present() bool { return v.present }

// Text returns the cleaned string and whether it is present.
func (v Value) Text() (string, bool) { return v.text, v.present }

// String returns the cleaned text, or the placeholder when absent.
func (v Value) String() string {
	if !v.present {
		return Placeholder
	}
	return v.text
}

// Float converts the cell to a number. A present but unparseable cell has no
// numeric value.
func (v Value) Float() (float64, bool) {
	if !v.present {
		return 0, false
	}
	return Number(v.text)
}

// FloatPtr is Float for JSON encoding: nil when there is no numeric value.
func (v Value) FloatPtr() *float64 {
	n, ok := v.Float()
	if !ok {
		return nil
	}
	return &n
}
