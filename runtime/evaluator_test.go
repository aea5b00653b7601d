package runtime

import (
	"strings"
	"testing"

	"github.com/deicod/webity/parser"
)

func evalExpr(t *testing.T, source string, vars map[string]interface{}) interface{} {
	t.Helper()
	expr, err := parser.ParseExpressionWithName(source, "test")
	if err != nil {
		t.Fatalf("failed to parse %q: %v", source, err)
	}
	value, err := NewContext(vars).Evaluator().EvalExpression(expr)
	if err != nil {
		t.Fatalf("failed to evaluate %q: %v", source, err)
	}
	return value
}

func evalError(t *testing.T, source string, vars map[string]interface{}) error {
	t.Helper()
	expr, err := parser.ParseExpressionWithName(source, "test")
	if err != nil {
		t.Fatalf("failed to parse %q: %v", source, err)
	}
	_, err = NewContext(vars).Evaluator().EvalExpression(expr)
	if err == nil {
		t.Fatalf("expected %q to fail", source)
	}
	return err
}

func execScript(source string, ctx *Context) (interface{}, error) {
	program, err := parser.ParseScriptWithName(source, "test")
	if err != nil {
		return nil, err
	}
	return ctx.Evaluator().ExecProgram(program)
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		source   string
		expected interface{}
	}{
		{"1 + 2 * 3", float64(7)},
		{"(1 + 2) * 3", float64(9)},
		{"7 / 2", 3.5},
		{"10 % 4", float64(2)},
		{"-n + 1", float64(-4)},
		{"'a' + 1", "a1"},
		{"1 + '1'", "11"},
		{"true + 1", float64(2)},
		{"1 == '1'", true},
		{"1 === '1'", false},
		{"null == undefined", true},
		{"null === undefined", false},
		{"'b' > 'a'", true},
		{"n >= 5 && n <= 5", true},
		{"0 || 'x'", "x"},
		{"'' && missing", ""},
		{"null ?? 'd'", "d"},
		{"0 ?? 'd'", float64(0)},
		{"!''", true},
		{"n > 1 ? 'many' : 'one'", "many"},
		{"typeof nope", "undefined"},
		{"typeof n", "number"},
		{"typeof null", "object"},
		{"typeof (() => 1)", "function"},
		{"`${n}-${'x'}`", "5-x"},
	}

	for _, tt := range tests {
		got := evalExpr(t, tt.source, map[string]interface{}{"n": 5})
		if got != tt.expected {
			t.Fatalf("%s: expected %#v, got %#v", tt.source, tt.expected, got)
		}
	}
}

func TestEvaluateOptionalChaining(t *testing.T) {
	vars := map[string]interface{}{
		"user":   map[string]interface{}{"name": "Ada"},
		"nobody": nil,
	}

	if got := evalExpr(t, "user?.name", vars); got != "Ada" {
		t.Fatalf("expected Ada, got %v", got)
	}
	if got := evalExpr(t, "nobody?.address.city", vars); !isUndefinedValue(got) {
		t.Fatalf("expected undefined, got %v", got)
	}
	if got := evalExpr(t, "nobody?.address.city ?? 'none'", vars); got != "none" {
		t.Fatalf("expected none, got %v", got)
	}

	err := evalError(t, "nobody.address", vars)
	if !IsTypeError(err) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

func TestEvaluateCollections(t *testing.T) {
	vars := map[string]interface{}{
		"xs": []interface{}{1, 2},
		"o":  map[string]interface{}{"a": 1},
	}

	if got := ToString(evalExpr(t, "[...xs, 3]", vars)); got != "1,2,3" {
		t.Fatalf("unexpected spread result %q", got)
	}
	if got := evalExpr(t, "({ ...o, b: 2 }).b + o.a", vars); got != float64(3) {
		t.Fatalf("unexpected object spread result %v", got)
	}
	if got := evalExpr(t, "({ a: 1, ['k' + 1]: 2 }).k1", vars); got != float64(2) {
		t.Fatalf("unexpected computed key result %v", got)
	}
	if got := evalExpr(t, "[[1, 2], [3]][0][1]", vars); got != float64(2) {
		t.Fatalf("unexpected index result %v", got)
	}
}

func TestEvaluateClosures(t *testing.T) {
	if got := evalExpr(t, "((x) => (y) => x + y)(1)(2)", nil); got != float64(3) {
		t.Fatalf("expected 3, got %v", got)
	}
	if got := evalExpr(t, "((a, b) => b)(1)", nil); !isUndefinedValue(got) {
		t.Fatalf("expected missing parameter to be undefined, got %v", got)
	}
}

type post struct {
	Title string
	Tags  []string
}

func (p post) Slug() string {
	return strings.ToLower(strings.ReplaceAll(p.Title, " ", "-"))
}

func TestEvaluateGoValues(t *testing.T) {
	vars := map[string]interface{}{
		"post":   post{Title: "Hello World", Tags: []string{"a", "b"}},
		"double": func(n int) int { return n * 2 },
	}

	if got := evalExpr(t, "post.title", vars); got != "Hello World" {
		t.Fatalf("expected field access, got %v", got)
	}
	if got := evalExpr(t, "post.Tags.length", vars); got != float64(2) {
		t.Fatalf("expected slice length, got %v", got)
	}
	if got := evalExpr(t, "post.slug()", vars); got != "hello-world" {
		t.Fatalf("expected method call, got %v", got)
	}
	if got := ToNumber(evalExpr(t, "double(21)", vars)); got != 42 {
		t.Fatalf("expected Go function call, got %v", got)
	}
}

func TestEvaluateUndefinedName(t *testing.T) {
	err := evalError(t, "missing + 1", nil)
	if !IsUndefinedError(err) {
		t.Fatalf("expected UndefinedError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "missing is not defined") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestEvaluateNewRequiresConstructor(t *testing.T) {
	err := evalError(t, "new Math()", nil)
	if !IsTypeError(err) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

func TestExecScriptStatements(t *testing.T) {
	source := `
let total = 0
const items = [1, 2, 3]
items.forEach(i => { total += i })
var label
if (total > 5) {
  label = 'big'
} else {
  label = 'small'
}
return label + ':' + total
`
	got, err := execScript(source, NewContext(nil))
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if got != "big:6" {
		t.Fatalf("expected big:6, got %v", got)
	}
}

func TestExecScriptWithoutReturn(t *testing.T) {
	got, err := execScript("const a = 1", NewContext(nil))
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if !isUndefinedValue(got) {
		t.Fatalf("expected undefined, got %v", got)
	}
}

func TestExecScriptBlockScope(t *testing.T) {
	source := `
let x = 'outer'
{
  let x = 'inner'
}
return x
`
	got, err := execScript(source, NewContext(nil))
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if got != "outer" {
		t.Fatalf("expected outer, got %v", got)
	}
}

func TestExecScriptConstAssignment(t *testing.T) {
	_, err := execScript("const a = 1\na = 2", NewContext(nil))
	if !IsTypeError(err) {
		t.Fatalf("expected TypeError, got %T: %v", err, err)
	}
}

func TestExecScriptRedeclaration(t *testing.T) {
	_, err := execScript("let a = 1\nlet a = 2", NewContext(nil))
	if err == nil {
		t.Fatal("expected redeclaration to fail")
	}
}

func TestExecScriptObjectMutation(t *testing.T) {
	source := "const o = { a: 1 }\no.a = 2\no.b = o.a + 1\nreturn JSON.stringify(o)"
	got, err := execScript(source, NewContext(nil))
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if got != `{"a":2,"b":3}` {
		t.Fatalf("unexpected object %v", got)
	}
}

func TestExecScriptGlobalAssignment(t *testing.T) {
	ctx := NewContext(nil)
	if _, err := execScript("counter = 1\ncounter += 2", ctx); err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if v, ok := ctx.Get("counter"); !ok || v != float64(3) {
		t.Fatalf("expected counter 3, got %v", v)
	}
}
