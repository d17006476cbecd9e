package policy

import "fmt"

// Filter is a row-level predicate returned alongside an allow decision.
// It is plain data so the execution engine can translate it into a query
// clause; Match supports checking an already-fetched record in memory.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // eq, neq, in, not_in, gt, gte, lt, lte
	Value    any    `json:"value"`
}

// Match evaluates the filter against a single record.
// A missing field never matches.
func (f Filter) Match(record map[string]any) bool {
	val, ok := record[f.Field]
	if !ok {
		return false
	}
	switch f.Operator {
	case "eq", "":
		return fmt.Sprintf("%v", val) == fmt.Sprintf("%v", f.Value)
	case "neq":
		return fmt.Sprintf("%v", val) != fmt.Sprintf("%v", f.Value)
	case "in":
		return valueInList(val, f.Value)
	case "not_in":
		return !valueInList(val, f.Value)
	case "gt":
		return compareNumeric(val, f.Value) > 0
	case "gte":
		return compareNumeric(val, f.Value) >= 0
	case "lt":
		return compareNumeric(val, f.Value) < 0
	case "lte":
		return compareNumeric(val, f.Value) <= 0
	default:
		return false
	}
}

// MatchAll reports whether the record satisfies every filter (conjunction).
func MatchAll(filters []Filter, record map[string]any) bool {
	for _, f := range filters {
		if !f.Match(record) {
			return false
		}
	}
	return true
}

func valueInList(val, list any) bool {
	valStr := fmt.Sprintf("%v", val)
	switch l := list.(type) {
	case []any:
		for _, item := range l {
			if fmt.Sprintf("%v", item) == valStr {
				return true
			}
		}
	case []string:
		for _, item := range l {
			if item == valStr {
				return true
			}
		}
	}
	return false
}

func compareNumeric(a, b any) int {
	fa := toFloat(a)
	fb := toFloat(b)
	if fa < fb {
		return -1
	}
	if fa > fb {
		return 1
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		var f float64
		fmt.Sscanf(fmt.Sprintf("%v", v), "%f", &f)
		return f
	}
}
