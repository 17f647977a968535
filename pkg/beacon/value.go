package beacon

import (
	"math"
	"strconv"
	"strings"
)

type (
	// Fields is a flat mapping of keys to scalar values.
	// Used for the dataset, for every environment source and for the payload.
	Fields = map[string]interface{}

	// Query is the decoded form of a payload as seen by the receiver.
	Query = map[string]string
)

// Scalar reports whether v may be transmitted: it must be a string, a bool
// or a number, and neither the empty string nor numeric zero.
func Scalar(v interface{}) bool {
	switch x := v.(type) {
	case string:
		return x != ""
	case bool:
		return true
	case int:
		return x != 0
	case int8:
		return x != 0
	case int16:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case uint:
		return x != 0
	case uint8:
		return x != 0
	case uint16:
		return x != 0
	case uint32:
		return x != 0
	case uint64:
		return x != 0
	case uintptr:
		return x != 0
	case float32:
		return x != 0
	case float64:
		return x != 0
	default:
		return false
	}
}

// Stringify renders a scalar the same way a browser would print it
// when building a query string.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uintptr:
		return strconv.FormatUint(uint64(x), 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	default:
		return ""
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		// 1e-07 -> 1e-7
		s := strconv.FormatFloat(f, 'e', -1, bits)
		mantissa, exp := s, ""
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			mantissa, exp = s[:i], s[i+1:]
		}
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}

	return strconv.FormatFloat(f, 'f', -1, bits)
}
