package automation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	conditionPattern = regexp.MustCompile(`(?i)^` + spaceClass + `*([\w.]+)` + spaceClass + `*(==|!=|>=|<=|>|<|bevat|contains)` + spaceClass + `*(.+)` + spaceClass + `*$`)
	numberLiteral    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	numericString    = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	hexString        = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
)

// EvaluateCondition evaluates a single comparison such as
//
//	contact.score > 50
//	payload.source == "facebook"
//	contact.tags bevat "VIP"
//
// against ctx. Empty or unparseable expressions are false.
func EvaluateCondition(expr string, ctx Context) bool {
	if trimSpace(expr) == "" {
		return false
	}

	m := conditionPattern.FindStringSubmatch(expr)
	if m == nil {
		zap.L().Warn("flowEngine: condition expression not recognized", zap.String("expression", expr))
		return false
	}

	leftPath, op := m[1], strings.ToLower(m[2])
	left, found := ctx.Lookup(leftPath)
	if !found {
		left = undefined{}
	}
	right := parseOperand(m[3])

	switch op {
	case "==":
		return looseEqual(left, right)
	case "!=":
		return !looseEqual(left, right)
	case ">":
		return toNumber(left) > toNumber(right)
	case "<":
		return toNumber(left) < toNumber(right)
	case ">=":
		return toNumber(left) >= toNumber(right)
	case "<=":
		return toNumber(left) <= toNumber(right)
	case "bevat", "contains":
		return contains(left, right)
	default:
		zap.L().Warn("flowEngine: unknown condition operator", zap.String("operator", op))
		return false
	}
}

// undefined marks a path that does not exist, as opposed to one holding nil.
type undefined struct{}

// parseOperand strips matching quotes, then reads a number, then a boolean,
// and otherwise keeps the text.
func parseOperand(raw string) any {
	s := trimSpace(raw)
	if (strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`)) ||
		(strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'")) {
		if len(s) >= 2 {
			s = s[1 : len(s)-1]
		} else {
			s = ""
		}
	}

	if numberLiteral.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// primitive reduces a context value to nil, undefined, string, float64 or
// bool. Lists and objects become their string form.
func primitive(v any) any {
	switch val := v.(type) {
	case nil, undefined, string, bool, float64:
		return val
	case []any, []string, map[string]any:
		return stringify(val)
	}
	if f, ok := numeric(v); ok {
		return f
	}
	return stringify(v)
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint64:
		return float64(val), true
	}
	return 0, false
}

// looseEqual compares with numeric coercion between strings, numbers and
// booleans. nil and undefined only equal each other.
func looseEqual(a, b any) bool {
	a, b = primitive(a), primitive(b)

	aNull := a == nil || a == (undefined{})
	bNull := b == nil || b == (undefined{})
	if aNull || bNull {
		return aNull && bNull
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	}
	return toNumber(a) == toNumber(b)
}

// toNumber converts the way a loosely typed comparison expects: nil is 0,
// undefined is NaN, blank strings are 0 and unparseable strings are NaN.
func toNumber(v any) float64 {
	switch val := primitive(v).(type) {
	case nil:
		return 0
	case undefined:
		return math.NaN()
	case bool:
		if val {
			return 1
		}
		return 0
	case float64:
		return val
	case string:
		return stringToNumber(val)
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	s = trimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if hexString.MatchString(s) {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	if !numericString.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// contains is list membership with strict comparison, or a substring test
// when the left side is text.
func contains(left, right any) bool {
	switch l := left.(type) {
	case []any:
		for _, item := range l {
			if strictEqual(item, right) {
				return true
			}
		}
		return false
	case []string:
		r, ok := right.(string)
		if !ok {
			return false
		}
		for _, item := range l {
			if item == r {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(l, stringify(right))
	}
	return false
}

func strictEqual(a, b any) bool {
	if af, ok := numeric(a); ok {
		bf, ok := numeric(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}
