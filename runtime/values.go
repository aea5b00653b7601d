package runtime

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/deicod/webity/nodes"
)

// Object is an insertion-ordered map produced by object literals,
// JSON.parse and the attribute bag of a component usage site.
type Object struct {
	keys   []string
	values map[string]interface{}
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{values: make(map[string]interface{})}
}

// NewObjectFromMap copies m into a new object with keys in sorted order
func NewObjectFromMap(m map[string]interface{}) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		o.Set(k, m[k])
	}
	return o
}

// Get returns the value stored under key
func (o *Object) Get(key string) (interface{}, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores a value, keeping the position of existing keys
func (o *Object) Set(key string, value interface{}) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Keys returns the keys in insertion order
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys
func (o *Object) Len() int {
	return len(o.keys)
}

// Map returns a shallow copy as a plain Go map
func (o *Object) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(o.keys))
	for _, k := range o.keys {
		out[k] = o.values[k]
	}
	return out
}

func (o *Object) String() string {
	return "[object Object]"
}

// Component is the value a template exports when its scripts call
// $export(new Component(...)), and the default export of every template.
type Component struct {
	*Object
}

// NewComponent creates an empty component
func NewComponent() *Component {
	return &Component{Object: NewObject()}
}

// NativeFunc is a callable implemented in Go
type NativeFunc func(args ...interface{}) (interface{}, error)

// Constructor is a value that can be instantiated with `new`
type Constructor struct {
	Name      string
	construct func(args ...interface{}) (interface{}, error)
}

// Function is a closure created by an arrow function expression
type Function struct {
	node  *nodes.Arrow
	scope *Scope
	ev    *Evaluator
}

// componentConstructor backs the `Component` binding of scripts. Its optional
// argument is an object whose properties are copied onto the instance.
var componentConstructor = &Constructor{
	Name: "Component",
	construct: func(args ...interface{}) (interface{}, error) {
		c := NewComponent()
		if len(args) > 0 {
			if props, ok := toObject(args[0]); ok {
				for _, k := range props.Keys() {
					v, _ := props.Get(k)
					c.Set(k, v)
				}
			}
		}
		return c, nil
	},
}

// fromGo normalizes values arriving from Go callers: every numeric kind
// becomes float64. Everything else is passed through unchanged.
func fromGo(value interface{}) interface{} {
	switch value.(type) {
	case nil, bool, string, float64, Undefined, *Object, *Component, []interface{},
		map[string]interface{}, NativeFunc, *Function, *Constructor:
		return value
	}
	if n, ok := classifyNumber(value); ok {
		return n.asFloat64()
	}
	return value
}

// toSlice converts arrays and slices of any element type
func toSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case nil, string:
		return nil, false
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, val.Len())
	for i := range out {
		out[i] = fromGo(val.Index(i).Interface())
	}
	return out, true
}

// toObject views string-keyed maps and objects as an *Object
func toObject(value interface{}) (*Object, bool) {
	switch v := value.(type) {
	case *Object:
		return v, true
	case *Component:
		return v.Object, true
	case map[string]interface{}:
		return NewObjectFromMap(v), true
	case nil:
		return nil, false
	}

	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Map && val.Type().Key().Kind() == reflect.String {
		m := make(map[string]interface{}, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = fromGo(iter.Value().Interface())
		}
		return NewObjectFromMap(m), true
	}
	return nil, false
}

// cloneLocals copies the arrays and plain objects reachable from locals so
// that in-place array methods and assignments never reach the caller's values
func cloneLocals(locals map[string]interface{}) map[string]interface{} {
	seen := make(map[*Object]*Object)
	out := make(map[string]interface{}, len(locals))
	for k, v := range locals {
		out[k] = cloneValue(v, seen)
	}
	return out
}

func cloneValue(value interface{}, seen map[*Object]*Object) interface{} {
	switch v := value.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = cloneValue(item, seen)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = cloneValue(item, seen)
		}
		return out
	case *Object:
		if v == nil {
			return v
		}
		if c, ok := seen[v]; ok {
			return c
		}
		out := NewObject()
		seen[v] = out
		for _, k := range v.keys {
			out.Set(k, cloneValue(v.values[k], seen))
		}
		return out
	}
	return value
}

// ToString converts a value the way String(value) does
func ToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case *Object, *Component:
		return "[object Object]"
	case *Function, NativeFunc:
		return "function () { [native code] }"
	case *Constructor:
		return "class " + v.Name + " {}"
	case error:
		return v.Error()
	}

	if n, ok := classifyNumber(value); ok {
		return formatNumber(n.asFloat64())
	}
	if items, ok := toSlice(value); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			if !isNullish(item) {
				parts[i] = ToString(item)
			}
		}
		return strings.Join(parts, ",")
	}
	if _, ok := toObject(value); ok {
		return "[object Object]"
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(value)
}

// toDisplayString converts a value for substitution into HTML output;
// null and undefined render as nothing
func toDisplayString(value interface{}) string {
	if isNullish(value) {
		return ""
	}
	return ToString(value)
}

// ToNumber converts a value the way Number(value) does
func ToNumber(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case Undefined:
		return math.NaN()
	case bool:
		if v {
			return 1
		}
		return 0
	case float64:
		return v
	case string:
		return parseNumber(v)
	}
	if n, ok := classifyNumber(value); ok {
		return n.asFloat64()
	}
	if _, ok := toSlice(value); ok {
		return parseNumber(ToString(value))
	}
	return math.NaN()
}

// ToBoolean reports whether a value is truthy
func ToBoolean(value interface{}) bool {
	switch v := value.(type) {
	case nil, Undefined:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	}
	if n, ok := classifyNumber(value); ok {
		return n.asFloat64() != 0
	}
	return true
}

func typeOf(value interface{}) string {
	switch value.(type) {
	case Undefined:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return "number"
	case *Function, NativeFunc, *Constructor:
		return "function"
	}
	if _, ok := classifyNumber(value); ok {
		return "number"
	}
	if reflect.ValueOf(value).Kind() == reflect.Func {
		return "function"
	}
	return "object"
}

func isNumber(value interface{}) bool {
	_, ok := classifyNumber(value)
	return ok
}

// strictEquals implements ===
func strictEquals(a, b interface{}) bool {
	if isNullish(a) || isNullish(b) {
		return (a == nil && b == nil) || (isUndefinedValue(a) && isUndefinedValue(b))
	}
	if isNumber(a) || isNumber(b) {
		if !isNumber(a) || !isNumber(b) {
			return false
		}
		return ToNumber(a) == ToNumber(b)
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return sameReference(a, b)
}

func sameReference(a, b interface{}) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

// looseEquals implements ==
func looseEquals(a, b interface{}) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if _, ok := a.(bool); ok {
		return looseEquals(ToNumber(a), b)
	}
	if _, ok := b.(bool); ok {
		return looseEquals(a, ToNumber(b))
	}

	_, aStr := a.(string)
	_, bStr := b.(string)
	aNum, bNum := isNumber(a), isNumber(b)
	switch {
	case aNum && bNum, aStr && bStr:
		return strictEquals(a, b)
	case aNum && bStr, aStr && bNum:
		return ToNumber(a) == ToNumber(b)
	case aStr || aNum:
		return looseEquals(a, ToString(b))
	case bStr || bNum:
		return looseEquals(ToString(a), b)
	}
	return sameReference(a, b)
}

// compareValues implements the relational operators. Two strings compare
// by code units, everything else numerically; NaN compares false.
func compareValues(op string, a, b interface{}) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "<":
			return as < bs
		case ">":
			return as > bs
		case "<=":
			return as <= bs
		case ">=":
			return as >= bs
		}
		return false
	}

	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	switch op {
	case "<":
		return x < y
	case ">":
		return x > y
	case "<=":
		return x <= y
	case ">=":
		return x >= y
	}
	return false
}
