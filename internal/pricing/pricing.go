// Package pricing turns free-text price recommendations into numeric ranges.
package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Range is a price range in euros with the recommended price inside it.
type Range struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Recommended float64 `json:"recommended"`
	Confidence  float64 `json:"confidence"`
	// Source is the recommendation string the range was parsed from.
	Source string `json:"source,omitempty"`
}

// ExtractRange parses a string like "12-18 EUR" into its first two numbers.
// One number yields (n, n), none yields (0, 0).
func ExtractRange(s string) (min, max float64) {
	matches := numberPattern.FindAllString(s, 2)
	switch len(matches) {
	case 0:
		return 0, 0
	case 1:
		v := parse(matches[0])
		return v, v
	default:
		return parse(matches[0]), parse(matches[1])
	}
}

func parse(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Recommended is the midpoint of the range.
func Recommended(min, max float64) float64 {
	return (min + max) / 2
}

// FromRecommendation builds a Range from the first non-empty candidate string.
// Candidates are given in order of preference.
func FromRecommendation(confidence float64, candidates ...string) Range {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		min, max := ExtractRange(c)
		return Range{
			Min:         min,
			Max:         max,
			Recommended: Recommended(min, max),
			Confidence:  confidence,
			Source:      c,
		}
	}
	return Range{Confidence: confidence}
}
