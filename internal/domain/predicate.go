package domain

import (
	"strconv"
)

// Predicate decides whether an endpoint with the given status is available.
// It is injected once when the registry is built and applied to every query.
type Predicate interface {
	Evaluate(status Status) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(status Status) bool

func (f PredicateFunc) Evaluate(status Status) bool { return f(status) }

// Always treats every endpoint as available.
func Always() Predicate {
	return PredicateFunc(func(Status) bool { return true })
}

// StatusPresent accepts endpoints that have reported at least one status.
func StatusPresent() Predicate {
	return PredicateFunc(func(s Status) bool { return s != nil })
}

// StatusIn accepts scalar statuses whose textual form is one of values.
// Strings compare as-is, booleans as "true"/"false", numbers in their shortest
// decimal form ("1", "2.5"). Objects, arrays and nil never match.
func StatusIn(values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return PredicateFunc(func(s Status) bool {
		text, ok := scalarText(s)
		if !ok {
			return false
		}
		_, found := set[text]
		return found
	})
}

func scalarText(s Status) (string, bool) {
	switch v := s.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}
