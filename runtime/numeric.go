package runtime

import (
	"math"
	"strconv"
	"strings"
)

type numberKind int

const (
	numberInteger numberKind = iota
	numberFloat
)

type numberValue struct {
	kind       numberKind
	intValue   int64
	floatValue float64
}

// classifyNumber recognizes every Go numeric kind that may arrive through
// locals. Booleans are not numbers here; coercion handles them separately.
func classifyNumber(value interface{}) (numberValue, bool) {
	switch v := value.(type) {
	case int:
		return numberValue{kind: numberInteger, intValue: int64(v), floatValue: float64(v)}, true
	case int8:
		return numberValue{kind: numberInteger, intValue: int64(v), floatValue: float64(v)}, true
	case int16:
		return numberValue{kind: numberInteger, intValue: int64(v), floatValue: float64(v)}, true
	case int32:
		return numberValue{kind: numberInteger, intValue: int64(v), floatValue: float64(v)}, true
	case int64:
		return numberValue{kind: numberInteger, intValue: v, floatValue: float64(v)}, true
	case uint:
		return classifyUnsigned(uint64(v))
	case uint8:
		return classifyUnsigned(uint64(v))
	case uint16:
		return classifyUnsigned(uint64(v))
	case uint32:
		return classifyUnsigned(uint64(v))
	case uint64:
		return classifyUnsigned(v)
	case float32:
		return numberValue{kind: numberFloat, floatValue: float64(v)}, true
	case float64:
		return numberValue{kind: numberFloat, floatValue: v}, true
	default:
		return numberValue{}, false
	}
}

func classifyUnsigned(v uint64) (numberValue, bool) {
	if v <= uint64(math.MaxInt64) {
		i := int64(v)
		return numberValue{kind: numberInteger, intValue: i, floatValue: float64(i)}, true
	}
	return numberValue{kind: numberFloat, floatValue: float64(v)}, true
}

func (n numberValue) asFloat64() float64 {
	if n.kind == numberInteger {
		return float64(n.intValue)
	}
	return n.floatValue
}

// formatNumber renders a number the way String(n) does: integral values have
// no fraction, very large and very small magnitudes use exponent notation.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads exponents to two digits: 1e-07 -> 1e-7
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumber converts a string the way Number(s) does
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		if n, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(n)
		}
		return math.NaN()
	}
	if strings.ContainsAny(lower, "xpn_") || strings.HasPrefix(lower, "i") {
		// reject Go-only syntax such as 0x1p3, 1_000, inf and nan
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
