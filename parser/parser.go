package parser

import (
	"errors"
	"fmt"

	"github.com/deicod/webity/lexer"
	"github.com/deicod/webity/nodes"
)

// TemplateSyntaxError represents a syntax error in a directive, interpolation
// or script body
type TemplateSyntaxError struct {
	Message string
	Line    int
	Column  int
	Name    string
}

func (e *TemplateSyntaxError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s at line %d, column %d in %s", e.Message, e.Line, e.Column, e.Name)
	}
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// reserved words that can never be used as plain identifiers
var reservedWords = map[string]bool{
	"const": true, "let": true, "var": true, "return": true, "if": true, "else": true,
	"new": true, "typeof": true, "true": true, "false": true, "null": true,
	"function": true, "class": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "break": true, "continue": true, "throw": true,
	"try": true, "catch": true, "finally": true, "delete": true, "in": true,
	"instanceof": true, "void": true, "yield": true, "await": true, "import": true,
	"export": true, "this": true, "super": true,
}

// Parser is a recursive descent parser for the expression and script language
type Parser struct {
	stream *lexer.TokenStream
	name   string
}

// NewParser tokenizes source and returns a parser positioned at its first token
func NewParser(source, name string) (*Parser, error) {
	stream, err := lexer.NewLexer().Tokenize(source, name)
	if err != nil {
		var lexErr lexer.LexerError
		if errors.As(err, &lexErr) {
			return nil, &TemplateSyntaxError{
				Message: lexErr.Message,
				Line:    lexErr.Line,
				Column:  lexErr.Column,
				Name:    name,
			}
		}
		return nil, err
	}

	return &Parser{
		stream: stream,
		name:   name,
	}, nil
}

// Fail creates a syntax error positioned at the given token
func (p *Parser) Fail(msg string, token lexer.Token) error {
	line := token.Line
	if line == 0 {
		line = 1
	}
	return &TemplateSyntaxError{
		Message: msg,
		Line:    line,
		Column:  token.Column,
		Name:    p.name,
	}
}

// failUnexpected reports the current token as unexpected
func (p *Parser) failUnexpected() error {
	token := p.stream.Peek()
	if token.Type == lexer.TokenEOF {
		return p.Fail("unexpected end of input", token)
	}
	return p.Fail(fmt.Sprintf("unexpected token %q", token.Value), token)
}

// Current returns the current token without consuming it
func (p *Parser) Current() lexer.Token {
	return p.stream.Peek()
}

// SkipIf skips a token if it matches the expected type
func (p *Parser) SkipIf(expectedType lexer.TokenType) bool {
	token := p.stream.Peek()
	if token.Type == expectedType {
		p.stream.Next()
		return true
	}
	return false
}

// Expect consumes and returns a token, failing if it doesn't match the expected type
func (p *Parser) Expect(expectedType lexer.TokenType) (lexer.Token, error) {
	token := p.stream.Peek()
	if token.Type == expectedType {
		return p.stream.Next(), nil
	}
	if token.Type == lexer.TokenEOF {
		return token, p.Fail(fmt.Sprintf("unexpected end of input, expected %s", expectedType), token)
	}
	return token, p.Fail(fmt.Sprintf("expected %s, got %q", expectedType, token.Value), token)
}

// SkipIfByName skips a name token with the given value
func (p *Parser) SkipIfByName(name string) bool {
	token := p.stream.Peek()
	if token.Type == lexer.TokenName && token.Value == name {
		p.stream.Next()
		return true
	}
	return false
}

// ExpectByName consumes a name token with the given value
func (p *Parser) ExpectByName(name string) (lexer.Token, error) {
	token := p.stream.Peek()
	if token.Type == lexer.TokenName && token.Value == name {
		return p.stream.Next(), nil
	}
	return token, p.Fail(fmt.Sprintf("expected %q, got %q", name, token.Value), token)
}

// Parse parses the whole input as a script
func (p *Parser) Parse() (*nodes.Program, error) {
	program := &nodes.Program{}
	program.SetPosition(nodes.NewPosition(1, 1))

	for !p.stream.Eof() {
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			program.Body = append(program.Body, stmt)
		}
	}
	return program, nil
}

// ParseSingleExpression parses the whole input as exactly one expression
func (p *Parser) ParseSingleExpression() (nodes.Expr, error) {
	if p.stream.Eof() {
		return nil, p.Fail("empty expression", p.Current())
	}
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	// a trailing semicolon is tolerated: `%{ value; }%`
	p.SkipIf(lexer.TokenSemicolon)
	if !p.stream.Eof() {
		return nil, p.failUnexpected()
	}
	return expr, nil
}

func position(token lexer.Token) nodes.Position {
	return nodes.NewPosition(token.Line, token.Column)
}
