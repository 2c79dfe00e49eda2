package reactotron

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dev-console/dev-console/internal/cdp"
)

var fnNameSentinel = regexp.MustCompile(`^~~~ (.+)\(\) ~~~$`)

// sentinelToValue recognizes the exact Reactotron sentinel strings listed in
// design §4.B and returns the value they stand for. ok is false for any
// string that is not a recognized sentinel.
func sentinelToValue(s string) (any, bool) {
	switch s {
	case "~~~ null ~~~", "~~~ undefined ~~~":
		return nil, true
	case "~~~ false ~~~":
		return false, true
	case "~~~ true ~~~":
		return true, true
	case "~~~ zero ~~~":
		return float64(0), true
	case "~~~ empty string ~~~":
		return "", true
	case "~~~ NaN ~~~":
		return cdp.RawLiteral("NaN"), true
	case "~~~ Infinity ~~~":
		return cdp.RawLiteral("Infinity"), true
	case "~~~ -Infinity ~~~":
		return cdp.RawLiteral("-Infinity"), true
	case "~~~ anonymous function ~~~":
		return "fn()", true
	case "~~~ skipped ~~~":
		return "[skipped]", true
	case "~~~ Circular Reference ~~~":
		return "[Circular Reference]", true
	}
	if m := fnNameSentinel.FindStringSubmatch(s); m != nil {
		return "fn:" + m[1], true
	}
	return nil, false
}

// looksLikeJSON is a cheap heuristic for whether a string is itself a
// JSON-encoded object or array worth re-parsing and recursing into.
func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return false
	}
	return (t[0] == '{' && t[len(t)-1] == '}') || (t[0] == '[' && t[len(t)-1] == ']')
}

// Normalize walks a decoded JSON value tree (the output of json.Unmarshal
// into `any`) and replaces every Reactotron sentinel string with the value
// it encodes, recursing into arrays, object values, and JSON-looking
// strings. Values with no sentinel pass through unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case string:
		if normalized, ok := sentinelToValue(val); ok {
			return normalized
		}
		if looksLikeJSON(val) {
			var parsed any
			if err := json.Unmarshal([]byte(val), &parsed); err == nil {
				return Normalize(parsed)
			}
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = Normalize(e)
		}
		return out
	default:
		return val
	}
}

