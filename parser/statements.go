package parser

import (
	"fmt"

	"github.com/deicod/webity/lexer"
	"github.com/deicod/webity/nodes"
)

// ParseStatement parses a single statement. Empty statements (a lone `;`)
// yield a nil statement.
func (p *Parser) ParseStatement() (nodes.Stmt, error) {
	token := p.Current()

	switch token.Type {
	case lexer.TokenSemicolon:
		p.stream.Next()
		return nil, nil
	case lexer.TokenLeftCurly:
		return p.ParseBlock()
	case lexer.TokenName:
		switch token.Value {
		case nodes.DeclConst, nodes.DeclLet, nodes.DeclVar:
			return p.ParseVarDecl()
		case "return":
			return p.ParseReturn()
		case "if":
			return p.ParseIf()
		case "class", "function", "for", "while", "do", "switch", "try", "throw":
			return nil, p.Fail(fmt.Sprintf("%q statements are not supported", token.Value), token)
		}
	}

	return p.parseExpressionStatement()
}

// ParseVarDecl parses `const|let|var name [= value]`
func (p *Parser) ParseVarDecl() (nodes.Stmt, error) {
	kind := p.stream.Next()

	name, err := p.Expect(lexer.TokenName)
	if err != nil {
		return nil, err
	}
	if reservedWords[name.Value] {
		return nil, p.Fail(fmt.Sprintf("unexpected reserved word %q", name.Value), name)
	}

	decl := &nodes.VarDecl{Kind: kind.Value, Name: name.Value}
	decl.SetPosition(position(kind))

	if p.SkipIf(lexer.TokenAssign) {
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		decl.Value = value
	} else if kind.Value == nodes.DeclConst {
		return nil, p.Fail(fmt.Sprintf("missing initializer in const declaration of %q", name.Value), name)
	}

	if p.Current().Type == lexer.TokenComma {
		return nil, p.Fail("multiple declarators are not supported", p.Current())
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return decl, nil
}

// ParseReturn parses `return [value]`. A line break directly after the
// keyword ends the statement.
func (p *Parser) ParseReturn() (nodes.Stmt, error) {
	token := p.stream.Next()
	ret := &nodes.Return{}
	ret.SetPosition(position(token))

	if !p.atStatementEnd() {
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		ret.Value = value
	}

	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseIf parses `if (test) stmt [else stmt]`
func (p *Parser) ParseIf() (nodes.Stmt, error) {
	token := p.stream.Next()

	if _, err := p.Expect(lexer.TokenLeftParen); err != nil {
		return nil, err
	}
	test, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenRightParen); err != nil {
		return nil, err
	}

	ifNode := &nodes.If{Test: test}
	ifNode.SetPosition(position(token))

	body, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	ifNode.Body = body

	if p.SkipIfByName("else") {
		elseBody, err := p.parseBranch()
		if err != nil {
			return nil, err
		}
		ifNode.Else = elseBody
	}
	return ifNode, nil
}

// parseBranch parses the body of an if or else: a braced block or a single
// statement.
func (p *Parser) parseBranch() ([]nodes.Stmt, error) {
	if p.Current().Type == lexer.TokenLeftCurly {
		return p.parseBlockBody()
	}
	stmt, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, nil
	}
	return []nodes.Stmt{stmt}, nil
}

// ParseBlock parses a braced statement list
func (p *Parser) ParseBlock() (nodes.Stmt, error) {
	token := p.Current()
	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	block := &nodes.Block{Body: body}
	block.SetPosition(position(token))
	return block, nil
}

func (p *Parser) parseBlockBody() ([]nodes.Stmt, error) {
	if _, err := p.Expect(lexer.TokenLeftCurly); err != nil {
		return nil, err
	}

	var body []nodes.Stmt
	for !p.SkipIf(lexer.TokenRightCurly) {
		if p.stream.Eof() {
			return nil, p.Fail("unexpected end of input, expected '}'", p.Current())
		}
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
	return body, nil
}

func (p *Parser) parseExpressionStatement() (nodes.Stmt, error) {
	token := p.Current()
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	var stmt nodes.Stmt
	next := p.Current()
	switch next.Type {
	case lexer.TokenAssign, lexer.TokenAddAssign, lexer.TokenSubAssign:
		if !expr.CanAssign() {
			return nil, p.Fail("invalid assignment target", token)
		}
		p.stream.Next()
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		assign := &nodes.Assign{Target: expr, Value: value, Operator: next.Value}
		assign.SetPosition(position(token))
		stmt = assign
	default:
		exprStmt := &nodes.ExprStmt{Node: expr}
		exprStmt.SetPosition(position(token))
		stmt = exprStmt
	}

	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// atStatementEnd reports whether the current token may legally end a
// statement without consuming anything.
func (p *Parser) atStatementEnd() bool {
	token := p.Current()
	switch token.Type {
	case lexer.TokenSemicolon, lexer.TokenRightCurly, lexer.TokenEOF:
		return true
	}
	return token.NewlineBefore
}

// endStatement consumes an optional semicolon. Without one, the statement
// must be followed by a line break, a closing brace or the end of input.
func (p *Parser) endStatement() error {
	if p.SkipIf(lexer.TokenSemicolon) {
		return nil
	}
	if p.atStatementEnd() {
		return nil
	}
	return p.failUnexpected()
}
