package automation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`{{` + spaceClass + `*([\w.]+)` + spaceClass + `*}}`)

// RenderTemplate replaces every {{path}} placeholder with the value found in
// ctx. Missing and nil values render as the empty string.
func RenderTemplate(tmpl string, ctx Context) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := ctx.Lookup(path)
		if !ok || v == nil {
			return ""
		}
		return stringify(v)
	})
}

// stringify formats a context value the way the dashboard users write their
// templates: 20 -> "20", true -> "true", lists joined by commas.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case float32:
		return formatNumber(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(val)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
