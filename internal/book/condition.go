package book

import "strings"

// Condition is the canonical condition grade of a book.
type Condition string

const (
	ConditionNew        Condition = "New"
	ConditionLikeNew    Condition = "Like New"
	ConditionVeryGood   Condition = "Very Good"
	ConditionGood       Condition = "Good"
	ConditionAcceptable Condition = "Acceptable"
)

// Conditions lists all grades from best to worst.
var Conditions = []Condition{
	ConditionNew,
	ConditionLikeNew,
	ConditionVeryGood,
	ConditionGood,
	ConditionAcceptable,
}

// Valid reports whether c is one of the canonical grades.
func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

type conditionKeyword struct {
	keyword   string
	condition Condition
}

// Order matters: "sehr gut" has to be checked before "gut".
var conditionKeywords = []conditionKeyword{
	{"neu", ConditionNew},
	{"sehr gut", ConditionVeryGood},
	{"gut", ConditionGood},
	{"akzeptabel", ConditionAcceptable},
}

// NormalizeCondition maps a free-text German condition assessment to a
// canonical grade. Unrecognized text maps to Good.
func NormalizeCondition(text string) Condition {
	lower := strings.ToLower(text)
	for _, kw := range conditionKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.condition
		}
	}
	return ConditionGood
}
