package runtime

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/deicod/webity/nodes"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// getMember resolves obj.key
func (e *Evaluator) getMember(obj interface{}, key string, node nodes.Node) (interface{}, error) {
	pos := node.GetPosition()
	if isNullish(obj) {
		return nil, NewTypeError(fmt.Sprintf("cannot read properties of %s (reading '%s')", ToString(obj), key), pos, node)
	}

	switch v := obj.(type) {
	case string:
		return e.stringMember(v, key, node), nil
	case bool:
		if key == "toString" {
			return NativeFunc(func(args ...interface{}) (interface{}, error) {
				return strconv.FormatBool(v), nil
			}), nil
		}
		return NewUndefined(key), nil
	case *Object:
		return objectMember(v, key), nil
	case *Component:
		return objectMember(v.Object, key), nil
	case NativeFunc, *Function, *Constructor:
		return NewUndefined(key), nil
	}

	if isNumber(obj) {
		return numberMember(ToNumber(obj), key), nil
	}
	if items, ok := toSlice(obj); ok {
		return e.arrayMember(items, key, node), nil
	}
	return resolveValue(obj, key), nil
}

func objectMember(o *Object, key string) interface{} {
	if value, ok := o.Get(key); ok {
		return value
	}
	return NewUndefined(key)
}

// resolveValue reads a key of a Go map or a field or method of a Go struct.
// Lower-case keys also match the exported name (title -> Title).
func resolveValue(obj interface{}, key string) interface{} {
	val := reflect.ValueOf(obj)
	if !val.IsValid() {
		return NewUndefined(key)
	}

	exported := key
	if key != "" {
		exported = strings.ToUpper(key[:1]) + key[1:]
	}

	for _, name := range []string{key, exported} {
		if m := val.MethodByName(name); m.IsValid() && m.CanInterface() {
			return m.Interface()
		}
	}

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return NewUndefined(key)
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return NewUndefined(key)
		}
		result := val.MapIndex(reflect.ValueOf(key).Convert(val.Type().Key()))
		if result.IsValid() {
			return fromGo(result.Interface())
		}
	case reflect.Struct:
		for _, name := range []string{key, exported} {
			field := val.FieldByName(name)
			if field.IsValid() && field.CanInterface() {
				return fromGo(field.Interface())
			}
		}
	}
	return NewUndefined(key)
}

// indexValue reads a numeric index of an array or string
func indexValue(obj interface{}, index float64) (interface{}, bool) {
	if index != math.Trunc(index) {
		return nil, false
	}
	if s, ok := obj.(string); ok {
		runes := []rune(s)
		if index < 0 || int(index) >= len(runes) {
			return undefinedValue, true
		}
		return string(runes[int(index)]), true
	}
	items, ok := toSlice(obj)
	if !ok {
		return nil, false
	}
	if index < 0 || int(index) >= len(items) {
		return undefinedValue, true
	}
	return items[int(index)], true
}

func setMember(obj interface{}, key string, value interface{}, pos nodes.Position, node nodes.Node) error {
	switch v := obj.(type) {
	case *Object:
		v.Set(key, value)
		return nil
	case *Component:
		v.Set(key, value)
		return nil
	}
	if isNullish(obj) {
		return NewTypeError(fmt.Sprintf("cannot set properties of %s (setting '%s')", ToString(obj), key), pos, node)
	}
	return NewAssignmentError(key, fmt.Sprintf("%s values are read-only", typeOf(obj)), pos, node)
}

// relativeIndex resolves a possibly negative index against length n,
// clamped to [0, n]
func relativeIndex(arg interface{}, n int, fallback int) int {
	if isUndefinedValue(arg) {
		return fallback
	}
	f := ToNumber(arg)
	if math.IsNaN(f) {
		return 0
	}
	i := int(math.Trunc(math.Max(math.Min(f, float64(n)), -float64(n)-1)))
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}
	return i
}

func arg(args []interface{}, i int) interface{} {
	if i < len(args) {
		return args[i]
	}
	return undefinedValue
}

func (e *Evaluator) stringMember(s string, key string, node nodes.Node) interface{} {
	runes := []rune(s)
	method := func(fn func(args []interface{}) (interface{}, error)) NativeFunc {
		return func(args ...interface{}) (interface{}, error) { return fn(args) }
	}

	switch key {
	case "length":
		return float64(len(runes))
	case "toString", "valueOf":
		return method(func([]interface{}) (interface{}, error) { return s, nil })
	case "toUpperCase":
		return method(func([]interface{}) (interface{}, error) { return upperCaser.String(s), nil })
	case "toLowerCase":
		return method(func([]interface{}) (interface{}, error) { return lowerCaser.String(s), nil })
	case "trim":
		return method(func([]interface{}) (interface{}, error) { return strings.TrimSpace(s), nil })
	case "trimStart":
		return method(func([]interface{}) (interface{}, error) { return strings.TrimLeftFunc(s, unicode.IsSpace), nil })
	case "trimEnd":
		return method(func([]interface{}) (interface{}, error) { return strings.TrimRightFunc(s, unicode.IsSpace), nil })
	case "includes":
		return method(func(args []interface{}) (interface{}, error) {
			return strings.Contains(s, ToString(arg(args, 0))), nil
		})
	case "startsWith":
		return method(func(args []interface{}) (interface{}, error) {
			return strings.HasPrefix(s, ToString(arg(args, 0))), nil
		})
	case "endsWith":
		return method(func(args []interface{}) (interface{}, error) {
			return strings.HasSuffix(s, ToString(arg(args, 0))), nil
		})
	case "indexOf", "lastIndexOf":
		return method(func(args []interface{}) (interface{}, error) {
			needle := []rune(ToString(arg(args, 0)))
			if key == "indexOf" {
				return float64(runeIndex(runes, needle, false)), nil
			}
			return float64(runeIndex(runes, needle, true)), nil
		})
	case "slice":
		return method(func(args []interface{}) (interface{}, error) {
			start := relativeIndex(arg(args, 0), len(runes), 0)
			end := relativeIndex(arg(args, 1), len(runes), len(runes))
			if start >= end {
				return "", nil
			}
			return string(runes[start:end]), nil
		})
	case "substring":
		return method(func(args []interface{}) (interface{}, error) {
			clamp := func(v interface{}, fallback int) int {
				if isUndefinedValue(v) {
					return fallback
				}
				f := ToNumber(v)
				if math.IsNaN(f) || f < 0 {
					return 0
				}
				if f > float64(len(runes)) {
					return len(runes)
				}
				return int(f)
			}
			start, end := clamp(arg(args, 0), 0), clamp(arg(args, 1), len(runes))
			if start > end {
				start, end = end, start
			}
			return string(runes[start:end]), nil
		})
	case "split":
		return method(func(args []interface{}) (interface{}, error) {
			sep := arg(args, 0)
			if isUndefinedValue(sep) {
				return []interface{}{s}, nil
			}
			var parts []string
			if sepStr := ToString(sep); sepStr == "" {
				for _, r := range runes {
					parts = append(parts, string(r))
				}
			} else {
				parts = strings.Split(s, sepStr)
			}
			out := make([]interface{}, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		})
	case "replace", "replaceAll":
		return method(func(args []interface{}) (interface{}, error) {
			pattern := ToString(arg(args, 0))
			replacement := arg(args, 1)
			limit := 1
			if key == "replaceAll" {
				limit = -1
			}
			if !isCallable(replacement) {
				return strings.Replace(s, pattern, ToString(replacement), limit), nil
			}
			var out strings.Builder
			rest := s
			for n := 0; limit < 0 || n < limit; n++ {
				i := strings.Index(rest, pattern)
				if i < 0 {
					break
				}
				result, err := e.callValue(replacement, []interface{}{pattern}, "replacer", node)
				if err != nil {
					return nil, err
				}
				out.WriteString(rest[:i])
				out.WriteString(ToString(result))
				rest = rest[i+len(pattern):]
				if pattern == "" {
					break
				}
			}
			out.WriteString(rest)
			return out.String(), nil
		})
	case "repeat":
		return method(func(args []interface{}) (interface{}, error) {
			n := ToNumber(arg(args, 0))
			if n < 0 || math.IsInf(n, 0) {
				return nil, fmt.Errorf("invalid count value: %s", formatNumber(n))
			}
			if math.IsNaN(n) {
				n = 0
			}
			return strings.Repeat(s, int(n)), nil
		})
	case "padStart", "padEnd":
		return method(func(args []interface{}) (interface{}, error) {
			width := int(ToNumber(arg(args, 0)))
			fill := " "
			if f := arg(args, 1); !isUndefinedValue(f) {
				fill = ToString(f)
			}
			if width <= len(runes) || fill == "" {
				return s, nil
			}
			pad := []rune(strings.Repeat(fill, width))[:width-len(runes)]
			if key == "padStart" {
				return string(pad) + s, nil
			}
			return s + string(pad), nil
		})
	case "charAt":
		return method(func(args []interface{}) (interface{}, error) {
			i := int(ToNumber(arg(args, 0)))
			if i < 0 || i >= len(runes) {
				return "", nil
			}
			return string(runes[i]), nil
		})
	case "at":
		return method(func(args []interface{}) (interface{}, error) {
			i := int(ToNumber(arg(args, 0)))
			if i < 0 {
				i += len(runes)
			}
			if i < 0 || i >= len(runes) {
				return undefinedValue, nil
			}
			return string(runes[i]), nil
		})
	case "concat":
		return method(func(args []interface{}) (interface{}, error) {
			var b strings.Builder
			b.WriteString(s)
			for _, a := range args {
				b.WriteString(ToString(a))
			}
			return b.String(), nil
		})
	}

	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(runes) {
		return string(runes[i])
	}
	return NewUndefined(key)
}

func runeIndex(haystack, needle []rune, last bool) int {
	found := -1
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			found = i
			if !last {
				return found
			}
		}
	}
	return found
}

func isCallable(value interface{}) bool {
	return typeOf(value) == "function"
}

func numberMember(f float64, key string) interface{} {
	switch key {
	case "toFixed":
		return NativeFunc(func(args ...interface{}) (interface{}, error) {
			digits := 0
			if len(args) > 0 {
				digits = int(ToNumber(args[0]))
			}
			if digits < 0 || digits > 100 {
				return nil, fmt.Errorf("toFixed() digits argument must be between 0 and 100")
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return formatNumber(f), nil
			}
			return strconv.FormatFloat(f, 'f', digits, 64), nil
		})
	case "toString":
		return NativeFunc(func(args ...interface{}) (interface{}, error) {
			if len(args) == 0 || isUndefinedValue(args[0]) {
				return formatNumber(f), nil
			}
			radix := int(ToNumber(args[0]))
			if radix < 2 || radix > 36 {
				return nil, fmt.Errorf("toString() radix must be between 2 and 36")
			}
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return formatNumber(f), nil
			}
			return strconv.FormatInt(int64(f), radix), nil
		})
	}
	return NewUndefined(key)
}

func (e *Evaluator) arrayMember(items []interface{}, key string, node nodes.Node) interface{} {
	method := func(fn func(args []interface{}) (interface{}, error)) NativeFunc {
		return func(args ...interface{}) (interface{}, error) { return fn(args) }
	}
	// each calls fn(item, index, array) until stop returns true
	each := func(fn interface{}, stop func(i int, result interface{}) bool) error {
		if !isCallable(fn) {
			return NewTypeError(fmt.Sprintf("%s is not a function", ToString(fn)), node.GetPosition(), node)
		}
		for i, item := range items {
			result, err := e.callValue(fn, []interface{}{item, float64(i), items}, "callback", node)
			if err != nil {
				return err
			}
			if stop(i, result) {
				return nil
			}
		}
		return nil
	}

	switch key {
	case "length":
		return float64(len(items))
	case "map":
		return method(func(args []interface{}) (interface{}, error) {
			out := make([]interface{}, 0, len(items))
			err := each(arg(args, 0), func(_ int, r interface{}) bool {
				out = append(out, r)
				return false
			})
			return out, err
		})
	case "filter":
		return method(func(args []interface{}) (interface{}, error) {
			out := make([]interface{}, 0, len(items))
			err := each(arg(args, 0), func(i int, r interface{}) bool {
				if ToBoolean(r) {
					out = append(out, items[i])
				}
				return false
			})
			return out, err
		})
	case "find", "findIndex":
		return method(func(args []interface{}) (interface{}, error) {
			found := -1
			err := each(arg(args, 0), func(i int, r interface{}) bool {
				if ToBoolean(r) {
					found = i
					return true
				}
				return false
			})
			if err != nil {
				return nil, err
			}
			if key == "findIndex" {
				return float64(found), nil
			}
			if found < 0 {
				return undefinedValue, nil
			}
			return items[found], nil
		})
	case "some", "every":
		return method(func(args []interface{}) (interface{}, error) {
			want := key == "some"
			result := !want
			err := each(arg(args, 0), func(_ int, r interface{}) bool {
				if ToBoolean(r) == want {
					result = want
					return true
				}
				return false
			})
			return result, err
		})
	case "forEach":
		return method(func(args []interface{}) (interface{}, error) {
			err := each(arg(args, 0), func(int, interface{}) bool { return false })
			return undefinedValue, err
		})
	case "reduce":
		return method(func(args []interface{}) (interface{}, error) {
			fn := arg(args, 0)
			if !isCallable(fn) {
				return nil, NewTypeError(fmt.Sprintf("%s is not a function", ToString(fn)), node.GetPosition(), node)
			}
			start := 0
			var acc interface{}
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(items) == 0 {
					return nil, NewTypeError("reduce of empty array with no initial value", node.GetPosition(), node)
				}
				acc = items[0]
				start = 1
			}
			for i := start; i < len(items); i++ {
				result, err := e.callValue(fn, []interface{}{acc, items[i], float64(i), items}, "callback", node)
				if err != nil {
					return nil, err
				}
				acc = result
			}
			return acc, nil
		})
	case "join":
		return method(func(args []interface{}) (interface{}, error) {
			sep := ","
			if s := arg(args, 0); !isUndefinedValue(s) {
				sep = ToString(s)
			}
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = toDisplayString(item)
			}
			return strings.Join(parts, sep), nil
		})
	case "includes":
		return method(func(args []interface{}) (interface{}, error) {
			needle := arg(args, 0)
			for _, item := range items {
				if strictEquals(item, needle) {
					return true, nil
				}
			}
			return false, nil
		})
	case "indexOf":
		return method(func(args []interface{}) (interface{}, error) {
			needle := arg(args, 0)
			for i, item := range items {
				if strictEquals(item, needle) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		})
	case "slice":
		return method(func(args []interface{}) (interface{}, error) {
			start := relativeIndex(arg(args, 0), len(items), 0)
			end := relativeIndex(arg(args, 1), len(items), len(items))
			if start >= end {
				return []interface{}{}, nil
			}
			return append([]interface{}(nil), items[start:end]...), nil
		})
	case "concat":
		return method(func(args []interface{}) (interface{}, error) {
			out := append([]interface{}(nil), items...)
			for _, a := range args {
				if more, ok := toSlice(a); ok {
					out = append(out, more...)
				} else {
					out = append(out, a)
				}
			}
			return out, nil
		})
	case "reverse":
		return method(func([]interface{}) (interface{}, error) {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
			return items, nil
		})
	case "sort":
		return method(func(args []interface{}) (interface{}, error) {
			cmp := arg(args, 0)
			var sortErr error
			sort.SliceStable(items, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				if isUndefinedValue(cmp) {
					return ToString(items[i]) < ToString(items[j])
				}
				result, err := e.callValue(cmp, []interface{}{items[i], items[j]}, "comparator", node)
				if err != nil {
					sortErr = err
					return false
				}
				return ToNumber(result) < 0
			})
			if sortErr != nil {
				return nil, sortErr
			}
			return items, nil
		})
	case "at":
		return method(func(args []interface{}) (interface{}, error) {
			i := int(ToNumber(arg(args, 0)))
			if i < 0 {
				i += len(items)
			}
			if i < 0 || i >= len(items) {
				return undefinedValue, nil
			}
			return items[i], nil
		})
	case "toString":
		return method(func([]interface{}) (interface{}, error) { return ToString(items), nil })
	}

	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(items) {
		return items[i]
	}
	return NewUndefined(key)
}
