package marketplace

import (
	"fmt"
	"strings"

	"github.com/raine/bookrelist/internal/book"
)

type conditionName struct {
	condition book.Condition
	german    string
}

var germanConditions = []conditionName{
	{book.ConditionNew, "Neu"},
	{book.ConditionLikeNew, "Wie neu"},
	{book.ConditionVeryGood, "Sehr gut"},
	{book.ConditionGood, "Gut"},
	{book.ConditionAcceptable, "Akzeptabel"},
}

// GermanCondition returns the German marketplace name of c.
func GermanCondition(c book.Condition) (string, bool) {
	for _, n := range germanConditions {
		if n.condition == c {
			return n.german, true
		}
	}
	return "", false
}

// Validate checks that rec can be listed and returns one message per
// problem. The price is only checked when validatePrice is set.
func Validate(rec *book.Record, validatePrice bool) []string {
	var errs []string
	if strings.TrimSpace(rec.Title) == "" {
		errs = append(errs, "Titel fehlt")
	}
	if rec.Condition == "" {
		errs = append(errs, "Zustand fehlt")
	} else if _, ok := GermanCondition(rec.Condition); !ok {
		allowed := make([]string, len(germanConditions))
		for i, n := range germanConditions {
			allowed[i] = string(n.condition)
		}
		errs = append(errs, fmt.Sprintf("Ungültiger Zustand: %s. Erlaubt sind: %s", rec.Condition, strings.Join(allowed, ", ")))
	}
	if validatePrice && rec.Price <= 0 {
		errs = append(errs, "Preis muss größer als 0 sein")
	}
	return errs
}

// ValidationFailure is the Result for a record that failed Validate.
func ValidationFailure(errs []string) Result {
	return Failure(KindValidation, "Validierungsfehler: "+strings.Join(errs, ", "), errs...)
}
