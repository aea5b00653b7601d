package lexer

import (
	"fmt"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenOperator
	TokenName
	TokenString
	TokenTemplate
	TokenNumber
	TokenAssign
	TokenAddAssign
	TokenSubAssign
	TokenComma
	TokenColon
	TokenSemicolon
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenLeftCurly
	TokenRightCurly
	TokenDot
	TokenOptionalDot
	TokenSpread
	TokenArrow
	TokenComparison
	TokenAdd
	TokenSub
	TokenMul
	TokenDiv
	TokenMod
	TokenNot
	TokenAnd
	TokenOr
	TokenNullish
	TokenTernary
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenOperator:     "OPERATOR",
	TokenName:         "NAME",
	TokenString:       "STRING",
	TokenTemplate:     "TEMPLATE",
	TokenNumber:       "NUMBER",
	TokenAssign:       "ASSIGN",
	TokenAddAssign:    "ADD_ASSIGN",
	TokenSubAssign:    "SUB_ASSIGN",
	TokenComma:        "COMMA",
	TokenColon:        "COLON",
	TokenSemicolon:    "SEMICOLON",
	TokenLeftParen:    "LPAREN",
	TokenRightParen:   "RPAREN",
	TokenLeftBracket:  "LBRACKET",
	TokenRightBracket: "RBRACKET",
	TokenLeftCurly:    "LCURLY",
	TokenRightCurly:   "RCURLY",
	TokenDot:          "DOT",
	TokenOptionalDot:  "OPTIONAL_DOT",
	TokenSpread:       "SPREAD",
	TokenArrow:        "ARROW",
	TokenComparison:   "COMPARISON",
	TokenAdd:          "ADD",
	TokenSub:          "SUB",
	TokenMul:          "MUL",
	TokenDiv:          "DIV",
	TokenMod:          "MOD",
	TokenNot:          "NOT",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNullish:      "NULLISH",
	TokenTernary:      "TERNARY",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", tt)
}

// Token represents a single token of an expression or script.
// NewlineBefore records whether a line break separated it from the previous
// token; the statement parser uses it to end statements without semicolons.
type Token struct {
	Type          TokenType
	Value         string
	Line          int
	Column        int
	Position      int
	NewlineBefore bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s('%s') at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

// TokenStream represents a stream of tokens
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{
		tokens: tokens,
		pos:    0,
	}
}

func (ts *TokenStream) Next() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eofToken()
	}
	token := ts.tokens[ts.pos]
	ts.pos++
	return token
}

func (ts *TokenStream) Peek() Token {
	if ts.pos >= len(ts.tokens) {
		return ts.eofToken()
	}
	return ts.tokens[ts.pos]
}

func (ts *TokenStream) PeekN(n int) Token {
	if ts.pos+n >= len(ts.tokens) {
		return ts.eofToken()
	}
	return ts.tokens[ts.pos+n]
}

func (ts *TokenStream) Consume(expected TokenType) (Token, error) {
	token := ts.Next()
	if token.Type != expected {
		return token, fmt.Errorf("expected %s, got %s at %d:%d",
			expected, token.Type, token.Line, token.Column)
	}
	return token, nil
}

// Expect consumes and returns a token, failing if it doesn't match the expected type
func (ts *TokenStream) Expect(expectedType TokenType) (Token, error) {
	return ts.Consume(expectedType)
}

func (ts *TokenStream) Eof() bool {
	return ts.Peek().Type == TokenEOF
}

// ExpectNamed consumes and returns a token, failing if it doesn't match the expected type and value
func (ts *TokenStream) ExpectNamed(expectedType TokenType, expectedValue string) (Token, error) {
	token := ts.Peek()
	if token.Type == expectedType && token.Value == expectedValue {
		return ts.Next(), nil
	}
	return token, fmt.Errorf("expected %s %q, got %s at %d:%d",
		expectedType, expectedValue, token.Type, token.Line, token.Column)
}

// ExpectNameValue consumes and returns a name token with specific value
func (ts *TokenStream) ExpectNameValue(expectedValue string) (Token, error) {
	return ts.ExpectNamed(TokenName, expectedValue)
}

// Mark returns the current position so a speculative scan can be rewound.
func (ts *TokenStream) Mark() int {
	return ts.pos
}

// Reset rewinds the stream to a position returned by Mark.
func (ts *TokenStream) Reset(mark int) {
	ts.pos = mark
}

func (ts *TokenStream) eofToken() Token {
	if len(ts.tokens) == 0 {
		return Token{Type: TokenEOF, Line: 1}
	}
	last := ts.tokens[len(ts.tokens)-1]
	return Token{Type: TokenEOF, Line: last.Line, Column: last.Column + len(last.Value)}
}
