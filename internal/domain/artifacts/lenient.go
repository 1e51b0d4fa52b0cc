package artifacts

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/mdaly0277/marketintel/internal/domain/cell"
)

var null = []byte("null")

// Num is an optional number that decodes from JSON numbers, numeric strings,
// null or sentinel strings. Anything it cannot read becomes absent rather
// than failing the whole document.
type Num struct {
	V     float64
	Valid bool
}

// N returns a present Num.
func N(v float64) Num { return Num{V: v, Valid: true} }

// Get returns the value and whether it is present.
func (n Num) Get() (float64, bool) { return n.V, n.Valid }

// Or returns the value or def when absent.
func (n Num) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.V
}

func (n *Num) UnmarshalJSON(b []byte) error {
	*n = Num{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}
	if v, ok := cell.Number(s); ok {
		*n = N(v)
	}
	return nil
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return null, nil
	}
	return strconv.AppendFloat(nil, n.V, 'f', -1, 64), nil
}

// Text is a string that tolerates numbers, booleans and null in the source.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = Text(s)
		}
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string { return string(t) }
