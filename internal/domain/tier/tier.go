// Package tier classifies composite scores into labelled bands. Two
// historical schemes exist; which one applies is a configuration choice.
package tier

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a score band label.
type Tier string

const (
	Leadership Tier = "Leadership"
	Positive   Tier = "Positive"
	Neutral    Tier = "Neutral"
	Caution    Tier = "Caution"
	Avoid      Tier = "Avoid"
	Negative   Tier = "Negative"
)

// ErrUnknownScheme is returned by Lookup for an unrecognised scheme name.
var ErrUnknownScheme = errors.New("unknown tier scheme")

// Band assigns Tier to scores at or above Min.
type Band struct {
	Min  float64
	Tier Tier
}

// Scheme is an ordered set of bands, highest threshold first, plus the tier
// for scores below every band.
type Scheme struct {
	Name  string
	Bands []Band
	Floor Tier
}

// Classify returns the tier for score.
func (s Scheme) Classify(score float64) Tier {
	for _, b := range s.Bands {
		if score >= b.Min {
			return b.Tier
		}
	}
	return s.Floor
}

// ClassifyValue is Classify for an optional score; no score has no tier.
func (s Scheme) ClassifyValue(score float64, ok bool) (Tier, bool) {
	if !ok {
		return "", false
	}
	return s.Classify(score), true
}

// Tiers lists the scheme's labels from best to worst.
func (s Scheme) Tiers() []Tier {
	out := make([]Tier, 0, len(s.Bands)+1)
	for _, b := range s.Bands {
		out = append(out, b.Tier)
	}
	return append(out, s.Floor)
}

// Has reports whether t belongs to the scheme.
func (s Scheme) Has(t Tier) bool {
	for _, x := range s.Tiers() {
		if x == t {
			return true
		}
	}
	return false
}

var (
	// SchemeA is the five-band scheme used by the screener.
	SchemeA = Scheme{
		Name: "A",
		Bands: []Band{
			{90, Leadership},
			{80, Positive},
			{70, Neutral},
			{60, Caution},
		},
		Floor: Avoid,
	}

	// SchemeB is the coarse three-band scheme used by the relative-strength page.
	SchemeB = Scheme{
		Name: "B",
		Bands: []Band{
			{75, Positive},
			{40, Neutral},
		},
		Floor: Negative,
	}
)

// Lookup resolves a scheme by name, case-insensitively.
func Lookup(name string) (Scheme, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "A":
		return SchemeA, nil
	case "B":
		return SchemeB, nil
	}
	return Scheme{}, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
}
