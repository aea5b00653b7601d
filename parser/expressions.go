package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deicod/webity/lexer"
	"github.com/deicod/webity/nodes"
)

// ParseExpression parses an expression, including arrow functions
func (p *Parser) ParseExpression() (nodes.Expr, error) {
	if p.isArrowStart() {
		return p.ParseArrow()
	}
	return p.ParseConditionalExpr()
}

// isArrowStart reports whether the upcoming tokens form an arrow function
// head: `name =>` or `(a, b) =>`.
func (p *Parser) isArrowStart() bool {
	token := p.Current()
	switch token.Type {
	case lexer.TokenName:
		return !reservedWords[token.Value] && p.stream.PeekN(1).Type == lexer.TokenArrow
	case lexer.TokenLeftParen:
		depth := 0
		for i := 0; ; i++ {
			t := p.stream.PeekN(i)
			switch t.Type {
			case lexer.TokenEOF:
				return false
			case lexer.TokenLeftParen:
				depth++
			case lexer.TokenRightParen:
				depth--
				if depth == 0 {
					return p.stream.PeekN(i+1).Type == lexer.TokenArrow
				}
			}
		}
	}
	return false
}

// ParseArrow parses `x => expr`, `(a, b) => expr` and `(a) => { ... }`
func (p *Parser) ParseArrow() (nodes.Expr, error) {
	start := p.Current()
	arrow := &nodes.Arrow{}
	arrow.SetPosition(position(start))

	if start.Type == lexer.TokenName {
		arrow.Params = []string{p.stream.Next().Value}
	} else {
		p.stream.Next()
		for !p.SkipIf(lexer.TokenRightParen) {
			if len(arrow.Params) > 0 {
				if _, err := p.Expect(lexer.TokenComma); err != nil {
					return nil, err
				}
			}
			param, err := p.Expect(lexer.TokenName)
			if err != nil {
				return nil, err
			}
			if reservedWords[param.Value] {
				return nil, p.Fail(fmt.Sprintf("unexpected reserved word %q", param.Value), param)
			}
			arrow.Params = append(arrow.Params, param.Value)
		}
	}

	if _, err := p.Expect(lexer.TokenArrow); err != nil {
		return nil, err
	}

	if p.Current().Type == lexer.TokenLeftCurly {
		body, err := p.parseBlockBody()
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = []nodes.Stmt{}
		}
		arrow.Body = body
		return arrow, nil
	}

	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	arrow.Expr = expr
	return arrow, nil
}

// ParseConditionalExpr parses conditional expressions (ternary operator)
func (p *Parser) ParseConditionalExpr() (nodes.Expr, error) {
	start := p.Current()

	test, err := p.ParseOr()
	if err != nil {
		return nil, err
	}

	if !p.SkipIf(lexer.TokenTernary) {
		return test, nil
	}

	expr1, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenColon); err != nil {
		return nil, err
	}
	expr2, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	condExpr := &nodes.CondExpr{
		Test:  test,
		Expr1: expr1,
		Expr2: expr2,
	}
	condExpr.SetPosition(position(start))
	return condExpr, nil
}

// ParseOr parses `||` and `??` chains
func (p *Parser) ParseOr() (nodes.Expr, error) {
	left, err := p.ParseAnd()
	if err != nil {
		return nil, err
	}

	for {
		token := p.Current()
		if token.Type != lexer.TokenOr && token.Type != lexer.TokenNullish {
			break
		}
		p.stream.Next()
		right, err := p.ParseAnd()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr(token.Value, left, right)
	}

	return left, nil
}

// ParseAnd parses logical AND expressions
func (p *Parser) ParseAnd() (nodes.Expr, error) {
	left, err := p.ParseCompare()
	if err != nil {
		return nil, err
	}

	for p.Current().Type == lexer.TokenAnd {
		p.stream.Next()
		right, err := p.ParseCompare()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr("&&", left, right)
	}

	return left, nil
}

// ParseCompare parses equality operators
func (p *Parser) ParseCompare() (nodes.Expr, error) {
	left, err := p.ParseRelational()
	if err != nil {
		return nil, err
	}

	for {
		token := p.Current()
		if token.Type != lexer.TokenComparison {
			break
		}
		switch token.Value {
		case "==", "!=", "===", "!==":
		default:
			return left, nil
		}
		p.stream.Next()
		right, err := p.ParseRelational()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr(token.Value, left, right)
	}

	return left, nil
}

// ParseRelational parses <, >, <= and >=
func (p *Parser) ParseRelational() (nodes.Expr, error) {
	left, err := p.ParseMath1()
	if err != nil {
		return nil, err
	}

	for {
		token := p.Current()
		if token.Type != lexer.TokenComparison {
			break
		}
		switch token.Value {
		case "<", ">", "<=", ">=":
		default:
			return left, nil
		}
		p.stream.Next()
		right, err := p.ParseMath1()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr(token.Value, left, right)
	}

	return left, nil
}

// ParseMath1 parses addition and subtraction
func (p *Parser) ParseMath1() (nodes.Expr, error) {
	left, err := p.ParseMath2()
	if err != nil {
		return nil, err
	}

	for {
		token := p.Current()
		if token.Type != lexer.TokenAdd && token.Type != lexer.TokenSub {
			break
		}
		p.stream.Next()
		right, err := p.ParseMath2()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr(token.Value, left, right)
	}

	return left, nil
}

// ParseMath2 parses multiplication, division and remainder
func (p *Parser) ParseMath2() (nodes.Expr, error) {
	left, err := p.ParseUnary()
	if err != nil {
		return nil, err
	}

	for {
		token := p.Current()
		if token.Type != lexer.TokenMul && token.Type != lexer.TokenDiv && token.Type != lexer.TokenMod {
			break
		}
		p.stream.Next()
		right, err := p.ParseUnary()
		if err != nil {
			return nil, err
		}
		left = nodes.NewBinExpr(token.Value, left, right)
	}

	return left, nil
}

// ParseUnary parses !, unary minus and plus, and typeof
func (p *Parser) ParseUnary() (nodes.Expr, error) {
	token := p.Current()

	var operator string
	switch {
	case token.Type == lexer.TokenNot:
		operator = "!"
	case token.Type == lexer.TokenSub:
		operator = "-"
	case token.Type == lexer.TokenAdd:
		operator = "+"
	case token.Type == lexer.TokenName && token.Value == "typeof":
		operator = "typeof"
	default:
		primary, err := p.ParsePrimary()
		if err != nil {
			return nil, err
		}
		return p.parsePostfix(primary)
	}

	p.stream.Next()
	node, err := p.ParseUnary()
	if err != nil {
		return nil, err
	}
	unary := &nodes.UnaryExpr{Node: node, Operator: operator}
	unary.SetPosition(position(token))
	return unary, nil
}

// ParsePrimary parses literals, names, groups and new expressions
func (p *Parser) ParsePrimary() (nodes.Expr, error) {
	token := p.Current()

	switch token.Type {
	case lexer.TokenNumber:
		p.stream.Next()
		value, err := parseNumber(token.Value)
		if err != nil {
			return nil, p.Fail(fmt.Sprintf("invalid number %q", token.Value), token)
		}
		return nodes.NewConst(value, token.Line, token.Column), nil

	case lexer.TokenString:
		p.stream.Next()
		return nodes.NewConst(token.Value, token.Line, token.Column), nil

	case lexer.TokenTemplate:
		p.stream.Next()
		return p.parseTemplateLiteral(token)

	case lexer.TokenName:
		switch token.Value {
		case "true":
			p.stream.Next()
			return nodes.NewConst(true, token.Line, token.Column), nil
		case "false":
			p.stream.Next()
			return nodes.NewConst(false, token.Line, token.Column), nil
		case "null":
			p.stream.Next()
			return nodes.NewConst(nil, token.Line, token.Column), nil
		case "new":
			return p.parseNew()
		}
		if reservedWords[token.Value] {
			return nil, p.Fail(fmt.Sprintf("unexpected reserved word %q", token.Value), token)
		}
		p.stream.Next()
		return nodes.NewName(token.Value, token.Line, token.Column), nil

	case lexer.TokenLeftParen:
		p.stream.Next()
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(lexer.TokenRightParen); err != nil {
			return nil, err
		}
		return expr, nil

	case lexer.TokenLeftBracket:
		return p.parseArray()

	case lexer.TokenLeftCurly:
		return p.parseObject()
	}

	return nil, p.failUnexpected()
}

// parsePostfix applies member access, indexing and calls to node
func (p *Parser) parsePostfix(node nodes.Expr) (nodes.Expr, error) {
	for {
		token := p.Current()
		switch token.Type {
		case lexer.TokenDot:
			p.stream.Next()
			attr, err := p.Expect(lexer.TokenName)
			if err != nil {
				return nil, err
			}
			getattr := &nodes.Getattr{Node: node, Attr: attr.Value}
			getattr.SetPosition(node.GetPosition())
			node = getattr

		case lexer.TokenOptionalDot:
			p.stream.Next()
			next := p.Current()
			switch next.Type {
			case lexer.TokenName:
				p.stream.Next()
				getattr := &nodes.Getattr{Node: node, Attr: next.Value, Optional: true}
				getattr.SetPosition(node.GetPosition())
				node = getattr
			case lexer.TokenLeftBracket:
				getitem, err := p.parseSubscript(node, true)
				if err != nil {
					return nil, err
				}
				node = getitem
			case lexer.TokenLeftParen:
				call, err := p.parseCall(node, true)
				if err != nil {
					return nil, err
				}
				node = call
			default:
				return nil, p.failUnexpected()
			}

		case lexer.TokenLeftBracket:
			getitem, err := p.parseSubscript(node, false)
			if err != nil {
				return nil, err
			}
			node = getitem

		case lexer.TokenLeftParen:
			call, err := p.parseCall(node, false)
			if err != nil {
				return nil, err
			}
			node = call

		default:
			return node, nil
		}
	}
}

func (p *Parser) parseSubscript(node nodes.Expr, optional bool) (nodes.Expr, error) {
	if _, err := p.Expect(lexer.TokenLeftBracket); err != nil {
		return nil, err
	}
	arg, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenRightBracket); err != nil {
		return nil, err
	}
	getitem := &nodes.Getitem{Node: node, Arg: arg, Optional: optional}
	getitem.SetPosition(node.GetPosition())
	return getitem, nil
}

func (p *Parser) parseCall(node nodes.Expr, optional bool) (nodes.Expr, error) {
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	call := &nodes.Call{Node: node, Args: args, Optional: optional}
	call.SetPosition(node.GetPosition())
	return call, nil
}

// parseArguments parses a parenthesized, comma separated argument list.
// Spread arguments and a trailing comma are accepted.
func (p *Parser) parseArguments() ([]nodes.Expr, error) {
	if _, err := p.Expect(lexer.TokenLeftParen); err != nil {
		return nil, err
	}

	var args []nodes.Expr
	for !p.SkipIf(lexer.TokenRightParen) {
		if len(args) > 0 {
			if _, err := p.Expect(lexer.TokenComma); err != nil {
				return nil, err
			}
			if p.SkipIf(lexer.TokenRightParen) {
				break
			}
		}
		arg, err := p.parseSpreadOrExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (p *Parser) parseSpreadOrExpression() (nodes.Expr, error) {
	token := p.Current()
	if !p.SkipIf(lexer.TokenSpread) {
		return p.ParseExpression()
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	spread := &nodes.Spread{Node: expr}
	spread.SetPosition(position(token))
	return spread, nil
}

// parseNew parses `new Callee(args)`. The callee may be a dotted path;
// the argument list is optional.
func (p *Parser) parseNew() (nodes.Expr, error) {
	token, err := p.ExpectByName("new")
	if err != nil {
		return nil, err
	}

	name, err := p.Expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	var callee nodes.Expr = nodes.NewName(name.Value, name.Line, name.Column)
	for p.SkipIf(lexer.TokenDot) {
		attr, err := p.Expect(lexer.TokenName)
		if err != nil {
			return nil, err
		}
		getattr := &nodes.Getattr{Node: callee, Attr: attr.Value}
		getattr.SetPosition(callee.GetPosition())
		callee = getattr
	}

	newExpr := &nodes.New{Node: callee}
	newExpr.SetPosition(position(token))
	if p.Current().Type == lexer.TokenLeftParen {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		newExpr.Args = args
	}
	return newExpr, nil
}

func (p *Parser) parseArray() (nodes.Expr, error) {
	token, err := p.Expect(lexer.TokenLeftBracket)
	if err != nil {
		return nil, err
	}

	array := &nodes.Array{Items: []nodes.Expr{}}
	array.SetPosition(position(token))
	for !p.SkipIf(lexer.TokenRightBracket) {
		if len(array.Items) > 0 {
			if _, err := p.Expect(lexer.TokenComma); err != nil {
				return nil, err
			}
			if p.SkipIf(lexer.TokenRightBracket) {
				break
			}
		}
		item, err := p.parseSpreadOrExpression()
		if err != nil {
			return nil, err
		}
		array.Items = append(array.Items, item)
	}
	return array, nil
}

// parseObject parses an object literal. Keys may be names, strings, numbers
// or computed `[expr]`; `name` alone is shorthand for `name: name`.
func (p *Parser) parseObject() (nodes.Expr, error) {
	token, err := p.Expect(lexer.TokenLeftCurly)
	if err != nil {
		return nil, err
	}

	object := &nodes.Object{Props: []*nodes.Property{}}
	object.SetPosition(position(token))
	for !p.SkipIf(lexer.TokenRightCurly) {
		if len(object.Props) > 0 {
			if _, err := p.Expect(lexer.TokenComma); err != nil {
				return nil, err
			}
			if p.SkipIf(lexer.TokenRightCurly) {
				break
			}
		}
		prop, err := p.parseProperty()
		if err != nil {
			return nil, err
		}
		object.Props = append(object.Props, prop)
	}
	return object, nil
}

func (p *Parser) parseProperty() (*nodes.Property, error) {
	token := p.Current()
	prop := &nodes.Property{}
	prop.SetPosition(position(token))

	switch token.Type {
	case lexer.TokenSpread:
		p.stream.Next()
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		prop.Spread = expr
		return prop, nil

	case lexer.TokenLeftBracket:
		p.stream.Next()
		key, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(lexer.TokenRightBracket); err != nil {
			return nil, err
		}
		prop.KeyExpr = key

	case lexer.TokenName:
		p.stream.Next()
		prop.Key = token.Value
		next := p.Current().Type
		if next == lexer.TokenComma || next == lexer.TokenRightCurly {
			if reservedWords[token.Value] {
				return nil, p.Fail(fmt.Sprintf("unexpected reserved word %q", token.Value), token)
			}
			prop.Value = nodes.NewName(token.Value, token.Line, token.Column)
			return prop, nil
		}

	case lexer.TokenString:
		p.stream.Next()
		prop.Key = token.Value

	case lexer.TokenNumber:
		p.stream.Next()
		value, err := parseNumber(token.Value)
		if err != nil {
			return nil, p.Fail(fmt.Sprintf("invalid number %q", token.Value), token)
		}
		prop.Key = strconv.FormatFloat(value, 'f', -1, 64)

	default:
		return nil, p.failUnexpected()
	}

	if _, err := p.Expect(lexer.TokenColon); err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	prop.Value = value
	return prop, nil
}

// parseTemplateLiteral splits a backtick body into its literal parts and
// `${...}` expressions. Expressions are parsed with their own parser; nested
// braces and strings inside them are honored when finding the closing brace.
func (p *Parser) parseTemplateLiteral(token lexer.Token) (nodes.Expr, error) {
	body := token.Value
	literal := &nodes.TemplateLiteral{}
	literal.SetPosition(position(token))

	var quasi strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			quasi.WriteByte(c)
			quasi.WriteByte(body[i+1])
			i++
			continue
		}
		if c != '$' || i+1 >= len(body) || body[i+1] != '{' {
			quasi.WriteByte(c)
			continue
		}

		end := matchBrace(body, i+2)
		if end < 0 {
			return nil, p.Fail("unterminated template expression", token)
		}
		text, err := lexer.UnescapeBody(quasi.String())
		if err != nil {
			return nil, p.Fail(err.Error(), token)
		}
		literal.Quasis = append(literal.Quasis, text)
		quasi.Reset()

		sub, err := NewParser(body[i+2:end], p.name)
		if err != nil {
			return nil, p.Fail(fmt.Sprintf("invalid template expression: %v", err), token)
		}
		expr, err := sub.ParseSingleExpression()
		if err != nil {
			return nil, p.Fail(fmt.Sprintf("invalid template expression: %v", err), token)
		}
		literal.Exprs = append(literal.Exprs, expr)
		i = end
	}

	text, err := lexer.UnescapeBody(quasi.String())
	if err != nil {
		return nil, p.Fail(err.Error(), token)
	}
	literal.Quasis = append(literal.Quasis, text)
	return literal, nil
}

// matchBrace returns the index of the `}` closing a `${` whose body starts at
// start, or -1.
func matchBrace(body string, start int) int {
	depth := 1
	var quote byte
	for i := start; i < len(body); i++ {
		c := body[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseNumber(value string) (float64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		n, err := strconv.ParseInt(value[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	return strconv.ParseFloat(value, 64)
}
