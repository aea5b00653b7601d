package runtime

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// installBuiltins binds the language built-ins every evaluation sees
func installBuiltins(ctx *Context) {
	g := ctx.globals
	g.Set("undefined", undefinedValue)
	g.Set("NaN", math.NaN())
	g.Set("Infinity", math.Inf(1))

	g.Set("String", NativeFunc(func(args ...interface{}) (interface{}, error) {
		if len(args) == 0 {
			return "", nil
		}
		return ToString(args[0]), nil
	}))
	g.Set("Number", NativeFunc(func(args ...interface{}) (interface{}, error) {
		if len(args) == 0 {
			return float64(0), nil
		}
		return ToNumber(args[0]), nil
	}))
	g.Set("Boolean", NativeFunc(func(args ...interface{}) (interface{}, error) {
		return ToBoolean(arg(args, 0)), nil
	}))
	g.Set("parseInt", NativeFunc(func(args ...interface{}) (interface{}, error) {
		radix := ToNumber(arg(args, 1))
		if math.IsNaN(radix) || math.IsInf(radix, 0) {
			radix = 0
		}
		return parseIntPrefix(ToString(arg(args, 0)), int(radix)), nil
	}))
	g.Set("parseFloat", NativeFunc(func(args ...interface{}) (interface{}, error) {
		return parseFloatPrefix(ToString(arg(args, 0))), nil
	}))
	g.Set("isNaN", NativeFunc(func(args ...interface{}) (interface{}, error) {
		return math.IsNaN(ToNumber(arg(args, 0))), nil
	}))

	g.Set("Math", mathNamespace())
	g.Set("JSON", jsonNamespace())
	g.Set("Object", objectNamespace())
	g.Set("Array", arrayNamespace())
	g.Set("console", consoleNamespace(ctx))
	g.Set("jsonpath", NativeFunc(jsonPathQuery))
}

// installTemplateHelpers binds the helpers available to directives and
// component templates
func installTemplateHelpers(ctx *Context) {
	ctx.Set("element", NativeFunc(elementHelper))
	ctx.Set("loop", NativeFunc(func(args ...interface{}) (interface{}, error) {
		items, ok := iterate(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("loop: %s is not iterable", typeOf(arg(args, 0)))
		}
		callback := arg(args, 1)
		var b strings.Builder
		for i, item := range items {
			result, err := ctx.Evaluator().Call(callback, item, float64(i))
			if err != nil {
				return nil, err
			}
			b.WriteString(toDisplayString(result))
		}
		return b.String(), nil
	}))
}

// elementHelper renders <tag k="v">inner</tag>. Attributes follow the key
// order of the object; Go maps have none and come out sorted.
func elementHelper(args ...interface{}) (interface{}, error) {
	tag := ToString(arg(args, 0))
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	if attrs, ok := toObject(arg(args, 2)); ok {
		for _, k := range attrs.Keys() {
			v, _ := attrs.Get(k)
			fmt.Fprintf(&b, ` %s="%s"`, k, ToString(v))
		}
	}
	b.WriteString(">")
	b.WriteString(toDisplayString(arg(args, 1)))
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
	return b.String(), nil
}

func namespace(members map[string]interface{}) *Object {
	return NewObjectFromMap(members)
}

func mathNamespace() *Object {
	unary := func(fn func(float64) float64) NativeFunc {
		return func(args ...interface{}) (interface{}, error) {
			return fn(ToNumber(arg(args, 0))), nil
		}
	}
	fold := func(start float64, pick func(a, b float64) float64) NativeFunc {
		return func(args ...interface{}) (interface{}, error) {
			result := start
			for _, a := range args {
				n := ToNumber(a)
				if math.IsNaN(n) {
					return math.NaN(), nil
				}
				result = pick(result, n)
			}
			return result, nil
		}
	}

	return namespace(map[string]interface{}{
		"PI":    math.Pi,
		"E":     math.E,
		"abs":   unary(math.Abs),
		"ceil":  unary(math.Ceil),
		"floor": unary(math.Floor),
		"round": unary(func(f float64) float64 { return math.Floor(f + 0.5) }),
		"trunc": unary(math.Trunc),
		"sqrt":  unary(math.Sqrt),
		"log":   unary(math.Log),
		"sign": unary(func(f float64) float64 {
			switch {
			case f > 0:
				return 1
			case f < 0:
				return -1
			}
			return f
		}),
		"min": fold(math.Inf(1), math.Min),
		"max": fold(math.Inf(-1), math.Max),
		"pow": NativeFunc(func(args ...interface{}) (interface{}, error) {
			return math.Pow(ToNumber(arg(args, 0)), ToNumber(arg(args, 1))), nil
		}),
		"random": NativeFunc(func(args ...interface{}) (interface{}, error) {
			return rand.Float64(), nil
		}),
	})
}

func objectNamespace() *Object {
	entries := func(value interface{}) ([]string, []interface{}) {
		if items, ok := iterate(value); ok {
			keys := make([]string, len(items))
			for i := range items {
				keys[i] = strconv.Itoa(i)
			}
			return keys, items
		}
		obj, ok := toObject(value)
		if !ok {
			return nil, nil
		}
		keys := obj.Keys()
		values := make([]interface{}, len(keys))
		for i, k := range keys {
			values[i], _ = obj.Get(k)
		}
		return keys, values
	}

	return namespace(map[string]interface{}{
		"keys": NativeFunc(func(args ...interface{}) (interface{}, error) {
			keys, _ := entries(arg(args, 0))
			out := make([]interface{}, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return out, nil
		}),
		"values": NativeFunc(func(args ...interface{}) (interface{}, error) {
			_, values := entries(arg(args, 0))
			return append([]interface{}{}, values...), nil
		}),
		"entries": NativeFunc(func(args ...interface{}) (interface{}, error) {
			keys, values := entries(arg(args, 0))
			out := make([]interface{}, len(keys))
			for i, k := range keys {
				out[i] = []interface{}{k, values[i]}
			}
			return out, nil
		}),
		"fromEntries": NativeFunc(func(args ...interface{}) (interface{}, error) {
			pairs, ok := toSlice(arg(args, 0))
			if !ok {
				return nil, fmt.Errorf("Object.fromEntries: %s is not iterable", typeOf(arg(args, 0)))
			}
			out := NewObject()
			for _, p := range pairs {
				pair, _ := toSlice(p)
				out.Set(ToString(arg(pair, 0)), arg(pair, 1))
			}
			return out, nil
		}),
		"assign": NativeFunc(func(args ...interface{}) (interface{}, error) {
			target, ok := toObject(arg(args, 0))
			if !ok {
				return nil, fmt.Errorf("Object.assign: cannot convert %s to object", ToString(arg(args, 0)))
			}
			for _, src := range args[1:] {
				keys, values := entries(src)
				for i, k := range keys {
					target.Set(k, values[i])
				}
			}
			return args[0], nil
		}),
	})
}

func arrayNamespace() *Object {
	return namespace(map[string]interface{}{
		"isArray": NativeFunc(func(args ...interface{}) (interface{}, error) {
			if _, ok := arg(args, 0).(string); ok {
				return false, nil
			}
			_, ok := toSlice(arg(args, 0))
			return ok, nil
		}),
		"from": NativeFunc(func(args ...interface{}) (interface{}, error) {
			items, ok := iterate(arg(args, 0))
			if !ok {
				return []interface{}{}, nil
			}
			return append([]interface{}{}, items...), nil
		}),
		"of": NativeFunc(func(args ...interface{}) (interface{}, error) {
			return append([]interface{}{}, args...), nil
		}),
	})
}

func consoleNamespace(ctx *Context) *Object {
	write := func(level string) NativeFunc {
		return func(args ...interface{}) (interface{}, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = ToString(a)
			}
			msg := strings.Join(parts, " ")
			switch level {
			case "warn":
				ctx.logger.Warn(msg, "source", "console", "template", ctx.name)
			case "error":
				ctx.logger.Error(msg, "source", "console", "template", ctx.name)
			case "debug":
				ctx.logger.Debug(msg, "source", "console", "template", ctx.name)
			default:
				ctx.logger.Info(msg, "source", "console", "template", ctx.name)
			}
			return undefinedValue, nil
		}
	}
	return namespace(map[string]interface{}{
		"log":   write("info"),
		"info":  write("info"),
		"warn":  write("warn"),
		"error": write("error"),
		"debug": write("debug"),
	})
}

var floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|[0-9]+\.?[0-9]*([eE][+-]?[0-9]+)?|\.[0-9]+([eE][+-]?[0-9]+)?)`)

// parseFloatPrefix parses the longest numeric prefix of s
func parseFloatPrefix(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	return parseNumber(m)
}

// parseIntPrefix parses the longest integer prefix of s in radix (0 means 10,
// or 16 with a 0x prefix)
func parseIntPrefix(s string, radix int) float64 {
	s = strings.TrimSpace(s)
	sign := 1.0
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if (radix == 0 || radix == 16) && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}

	result, digits := 0.0, 0
	for _, r := range strings.ToLower(s) {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 10
		default:
			d = radix
		}
		if d >= radix {
			break
		}
		result = result*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	return sign * result
}

func jsonNamespace() *Object {
	return namespace(map[string]interface{}{
		"stringify": NativeFunc(func(args ...interface{}) (interface{}, error) {
			indent := ""
			switch space := arg(args, 2).(type) {
			case string:
				indent = space
			case float64:
				indent = strings.Repeat(" ", int(math.Max(0, math.Min(10, space))))
			}
			if len(indent) > 10 {
				indent = indent[:10]
			}
			out, ok, err := stringifyJSON(arg(args, 0), indent)
			if err != nil {
				return nil, err
			}
			if !ok {
				return undefinedValue, nil
			}
			return out, nil
		}),
		"parse": NativeFunc(func(args ...interface{}) (interface{}, error) {
			data, err := oj.ParseString(ToString(arg(args, 0)))
			if err != nil {
				return nil, fmt.Errorf("JSON.parse: %w", err)
			}
			return fromJSON(data), nil
		}),
	})
}

var jsonOptions = ojg.Options{HTMLUnsafe: true}

const maxJSONDepth = 512

type jsonWriter struct {
	b      strings.Builder
	indent string
}

// stringifyJSON encodes a value the way JSON.stringify does. ok is false
// when the value itself has no JSON form (undefined or a function).
func stringifyJSON(value interface{}, indent string) (string, bool, error) {
	w := &jsonWriter{indent: indent}
	ok, err := w.write(value, 0)
	if err != nil || !ok {
		return "", ok, err
	}
	return w.b.String(), true, nil
}

func (w *jsonWriter) newline(depth int) {
	if w.indent == "" {
		return
	}
	w.b.WriteByte('\n')
	w.b.WriteString(strings.Repeat(w.indent, depth))
}

func (w *jsonWriter) write(value interface{}, depth int) (bool, error) {
	if depth > maxJSONDepth {
		return false, fmt.Errorf("JSON.stringify: converting circular structure to JSON")
	}

	switch v := value.(type) {
	case nil:
		w.b.WriteString("null")
		return true, nil
	case Undefined:
		return false, nil
	case bool:
		w.b.WriteString(strconv.FormatBool(v))
		return true, nil
	case string:
		w.b.WriteString(oj.JSON(v, &jsonOptions))
		return true, nil
	}
	if typeOf(value) == "function" {
		return false, nil
	}
	if isNumber(value) {
		f := ToNumber(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			w.b.WriteString("null")
		} else {
			w.b.WriteString(formatNumber(f))
		}
		return true, nil
	}

	if items, ok := toSlice(value); ok {
		w.b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				w.b.WriteByte(',')
			}
			w.newline(depth + 1)
			ok, err := w.write(item, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				w.b.WriteString("null")
			}
		}
		if len(items) > 0 {
			w.newline(depth)
		}
		w.b.WriteByte(']')
		return true, nil
	}

	if obj, ok := toObject(value); ok {
		w.b.WriteByte('{')
		written := 0
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			if isUndefinedValue(v) || typeOf(v) == "function" {
				continue
			}
			if written > 0 {
				w.b.WriteByte(',')
			}
			w.newline(depth + 1)
			w.b.WriteString(oj.JSON(k, &jsonOptions))
			w.b.WriteByte(':')
			if w.indent != "" {
				w.b.WriteByte(' ')
			}
			if _, err := w.write(v, depth+1); err != nil {
				return false, err
			}
			written++
		}
		if written > 0 {
			w.newline(depth)
		}
		w.b.WriteByte('}')
		return true, nil
	}

	// Go structs and other values are encoded by reflection
	w.b.WriteString(oj.JSON(value, &jsonOptions))
	return true, nil
}

// fromJSON converts decoded JSON into evaluation values
func fromJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = fromJSON(item)
		}
		return NewObjectFromMap(out)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = fromJSON(item)
		}
		return out
	}
	return fromGo(data)
}

// toPlain converts evaluation values into plain Go maps and slices
func toPlain(value interface{}) interface{} {
	switch v := value.(type) {
	case *Object:
		out := make(map[string]interface{}, v.Len())
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			out[k] = toPlain(item)
		}
		return out
	case *Component:
		return toPlain(v.Object)
	case Undefined:
		return nil
	case string, nil, bool, float64:
		return v
	}
	if items, ok := toSlice(value); ok {
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = toPlain(item)
		}
		return out
	}
	if obj, ok := toObject(value); ok {
		return toPlain(obj)
	}
	return value
}

// jsonPathQuery implements jsonpath(value, path): every match of a JSONPath
// expression, in document order
func jsonPathQuery(args ...interface{}) (interface{}, error) {
	expr, err := jp.ParseString(ToString(arg(args, 1)))
	if err != nil {
		return nil, fmt.Errorf("jsonpath: %w", err)
	}
	results := expr.Get(toPlain(arg(args, 0)))
	out := make([]interface{}, len(results))
	for i, r := range results {
		out[i] = fromJSON(r)
	}
	return out, nil
}
