package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/deicod/webity/nodes"
)

func mustParseExpr(t *testing.T, source string) nodes.Expr {
	t.Helper()
	expr, err := ParseExpressionString(source)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", source, err)
	}
	return expr
}

func mustParseScript(t *testing.T, source string) *nodes.Program {
	t.Helper()
	program, err := ParseScript(source)
	if err != nil {
		t.Fatalf("failed to parse script: %v", err)
	}
	return program
}

func TestParser_Precedence(t *testing.T) {
	expr := mustParseExpr(t, "a + b * c")
	add, ok := expr.(*nodes.BinExpr)
	if !ok || add.Operator != "+" {
		t.Fatalf("expected + at the root, got %s", nodes.Dump(expr))
	}
	mul, ok := add.Right.(*nodes.BinExpr)
	if !ok || mul.Operator != "*" {
		t.Fatalf("expected * on the right, got %s", nodes.Dump(expr))
	}
}

func TestParser_LogicalAndComparison(t *testing.T) {
	got := nodes.Dump(mustParseExpr(t, "a === b && c || d ?? e"))
	want := strings.Join([]string{
		"BinExpr(??)",
		"  BinExpr(||)",
		"    BinExpr(&&)",
		"      BinExpr(===)",
		"        Name(a)",
		"        Name(b)",
		"      Name(c)",
		"    Name(d)",
		"  Name(e)",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected tree:\n%s\nwant:\n%s", got, want)
	}
}

func TestParser_Ternary(t *testing.T) {
	expr := mustParseExpr(t, "ok ? 'yes' : 'no'")
	cond, ok := expr.(*nodes.CondExpr)
	if !ok {
		t.Fatalf("expected CondExpr, got %T", expr)
	}
	if c, ok := cond.Expr2.(*nodes.Const); !ok || c.Value != "no" {
		t.Fatalf("unexpected else branch %v", cond.Expr2)
	}
}

func TestParser_MemberAccessAndCalls(t *testing.T) {
	got := nodes.Dump(mustParseExpr(t, "locals.items.map(item => item.title)"))
	want := strings.Join([]string{
		"Call",
		"  Getattr(.map)",
		"    Getattr(.items)",
		"      Name(locals)",
		"  Arrow(item)",
		"    Getattr(.title)",
		"      Name(item)",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected tree:\n%s\nwant:\n%s", got, want)
	}
}

func TestParser_OptionalChaining(t *testing.T) {
	expr := mustParseExpr(t, "user?.profile?.[key]")
	item, ok := expr.(*nodes.Getitem)
	if !ok || !item.Optional {
		t.Fatalf("expected optional Getitem, got %s", nodes.Dump(expr))
	}
	attr, ok := item.Node.(*nodes.Getattr)
	if !ok || !attr.Optional || attr.Attr != "profile" {
		t.Fatalf("expected optional Getattr, got %s", nodes.Dump(expr))
	}
}

func TestParser_ArrowFunctions(t *testing.T) {
	tests := []struct {
		source string
		params []string
		block  bool
	}{
		{"x => x * 2", []string{"x"}, false},
		{"(a, b) => a + b", []string{"a", "b"}, false},
		{"() => 1", nil, false},
		{"(item) => { return item }", []string{"item"}, true},
	}

	for _, tt := range tests {
		expr := mustParseExpr(t, tt.source)
		arrow, ok := expr.(*nodes.Arrow)
		if !ok {
			t.Fatalf("%q: expected Arrow, got %T", tt.source, expr)
		}
		if strings.Join(arrow.Params, ",") != strings.Join(tt.params, ",") {
			t.Fatalf("%q: unexpected params %v", tt.source, arrow.Params)
		}
		if tt.block != (arrow.Body != nil) {
			t.Fatalf("%q: unexpected body form %s", tt.source, nodes.Dump(arrow))
		}
	}
}

func TestParser_GroupIsNotArrow(t *testing.T) {
	expr := mustParseExpr(t, "(a + b) * 2")
	if bin, ok := expr.(*nodes.BinExpr); !ok || bin.Operator != "*" {
		t.Fatalf("expected multiplication, got %s", nodes.Dump(expr))
	}
}

func TestParser_Literals(t *testing.T) {
	expr := mustParseExpr(t, "{ title, 'data-id': 1, [key]: v, ...rest, list: [1, ...more,] }")
	object, ok := expr.(*nodes.Object)
	if !ok {
		t.Fatalf("expected Object, got %T", expr)
	}
	if len(object.Props) != 5 {
		t.Fatalf("expected 5 properties, got %d", len(object.Props))
	}
	if object.Props[0].Key != "title" {
		t.Fatalf("expected shorthand title, got %v", object.Props[0])
	}
	if name, ok := object.Props[0].Value.(*nodes.Name); !ok || name.Name != "title" {
		t.Fatalf("shorthand should reference the name, got %v", object.Props[0].Value)
	}
	if object.Props[1].Key != "data-id" {
		t.Fatalf("expected string key, got %q", object.Props[1].Key)
	}
	if object.Props[2].KeyExpr == nil {
		t.Fatalf("expected computed key")
	}
	if object.Props[3].Spread == nil {
		t.Fatalf("expected spread property")
	}
	list, ok := object.Props[4].Value.(*nodes.Array)
	if !ok || len(list.Items) != 2 {
		t.Fatalf("expected two array items, got %v", object.Props[4].Value)
	}
	if _, ok := list.Items[1].(*nodes.Spread); !ok {
		t.Fatalf("expected spread item, got %T", list.Items[1])
	}
}

func TestParser_Numbers(t *testing.T) {
	tests := map[string]float64{
		"42":   42,
		"1.5":  1.5,
		".5":   0.5,
		"1e3":  1000,
		"0x1F": 31,
	}
	for source, want := range tests {
		c, ok := mustParseExpr(t, source).(*nodes.Const)
		if !ok {
			t.Fatalf("%q: expected Const", source)
		}
		if c.Value != want {
			t.Fatalf("%q: expected %v, got %v", source, want, c.Value)
		}
	}
}

func TestParser_TemplateLiteral(t *testing.T) {
	expr := mustParseExpr(t, "`Hello ${user.name}, you have ${ {a: 1}.a } new\\n`")
	literal, ok := expr.(*nodes.TemplateLiteral)
	if !ok {
		t.Fatalf("expected TemplateLiteral, got %T", expr)
	}
	if len(literal.Quasis) != 3 || len(literal.Exprs) != 2 {
		t.Fatalf("unexpected split: %q / %d exprs", literal.Quasis, len(literal.Exprs))
	}
	if literal.Quasis[0] != "Hello " || literal.Quasis[2] != " new\n" {
		t.Fatalf("unexpected quasis %q", literal.Quasis)
	}
	if _, ok := literal.Exprs[1].(*nodes.Getattr); !ok {
		t.Fatalf("expected member access on object literal, got %T", literal.Exprs[1])
	}
}

func TestParser_NewExpression(t *testing.T) {
	expr := mustParseExpr(t, "new Component()")
	newExpr, ok := expr.(*nodes.New)
	if !ok {
		t.Fatalf("expected New, got %T", expr)
	}
	if name, ok := newExpr.Node.(*nodes.Name); !ok || name.Name != "Component" {
		t.Fatalf("unexpected callee %v", newExpr.Node)
	}
}

func TestParser_Unary(t *testing.T) {
	got := nodes.Dump(mustParseExpr(t, "!typeof -x"))
	want := "UnaryExpr(!)\n  UnaryExpr(typeof)\n    UnaryExpr(-)\n      Name(x)\n"
	if got != want {
		t.Fatalf("unexpected tree:\n%s", got)
	}
}

func TestParser_ScriptStatements(t *testing.T) {
	program := mustParseScript(t, `
		const card = $import('card.html')
		let count = 1;
		count += 2
		if (card) {
			$export.ok = true
		} else if (count > 2) count = 0
		return new Component()
	`)

	if len(program.Body) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(program.Body))
	}
	decl, ok := program.Body[0].(*nodes.VarDecl)
	if !ok || decl.Kind != "const" || decl.Name != "card" {
		t.Fatalf("unexpected declaration %v", program.Body[0])
	}
	assign, ok := program.Body[2].(*nodes.Assign)
	if !ok || assign.Operator != "+=" {
		t.Fatalf("unexpected assignment %v", program.Body[2])
	}
	ifNode, ok := program.Body[3].(*nodes.If)
	if !ok {
		t.Fatalf("expected If, got %T", program.Body[3])
	}
	if len(ifNode.Else) != 1 {
		t.Fatalf("expected else-if chain, got %v", ifNode.Else)
	}
	if _, ok := ifNode.Else[0].(*nodes.If); !ok {
		t.Fatalf("expected nested If, got %T", ifNode.Else[0])
	}
	if ret, ok := program.Body[4].(*nodes.Return); !ok || ret.Value == nil {
		t.Fatalf("expected return with value, got %v", program.Body[4])
	}
}

func TestParser_ReturnLineBreak(t *testing.T) {
	program := mustParseScript(t, "return\nvalue")
	if len(program.Body) != 2 {
		t.Fatalf("expected return and expression statement, got %d", len(program.Body))
	}
	if ret := program.Body[0].(*nodes.Return); ret.Value != nil {
		t.Fatalf("expected bare return, got %v", ret.Value)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		script bool
		msg    string
	}{
		{"missing operand", "1 +", false, "unexpected end of input"},
		{"trailing tokens", "a b", false, "unexpected token"},
		{"invalid assignment", "a.b() = 1", true, "invalid assignment target"},
		{"const without value", "const x", true, "missing initializer"},
		{"class unsupported", "class A {}", true, "not supported"},
		{"statements on one line", "a = 1 b = 2", true, "unexpected token"},
		{"unknown character", "a # b", false, "unexpected character"},
		{"empty expression", "  ", false, "empty expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.script {
				_, err = ParseScript(tt.source)
			} else {
				_, err = ParseExpressionString(tt.source)
			}
			if err == nil {
				t.Fatalf("expected error for %q", tt.source)
			}
			var syntaxErr *TemplateSyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected TemplateSyntaxError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("expected %q in %q", tt.msg, err.Error())
			}
		})
	}
}

func TestParser_ErrorPosition(t *testing.T) {
	_, err := ParseScriptWithName("const a = 1\nconst = 2", "about.html")
	var syntaxErr *TemplateSyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected TemplateSyntaxError, got %v", err)
	}
	if syntaxErr.Line != 2 || syntaxErr.Name != "about.html" {
		t.Fatalf("unexpected position %+v", syntaxErr)
	}
}
