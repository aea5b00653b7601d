package lexer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// LexerError represents a lexing error
type LexerError struct {
	Message string
	Line    int
	Column  int
	Pos     int
}

func (e LexerError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}

// Rule represents a lexing rule with regex pattern and associated token type.
// Rules with Skip set consume input without producing a token.
type Rule struct {
	Regex *regexp.Regexp
	Type  TokenType
	Skip  bool
}

// Lexer tokenizes expression and script sources
type Lexer struct {
	rules []*Rule
}

// NewLexer creates a new lexer
func NewLexer() *Lexer {
	lexer := &Lexer{}
	lexer.buildRules()
	return lexer
}

// buildRules constructs the ordered rule list. Order matters: comments must
// be tried before the division operator and numbers before the dot operator.
func (l *Lexer) buildRules() {
	l.rules = []*Rule{
		{Regex: WhitespaceRegex, Skip: true},
		{Regex: LineCommentRegex, Skip: true},
		{Regex: BlockCommentRegex, Skip: true},
		{Regex: NumberRegex, Type: TokenNumber},
		{Regex: NameRegex, Type: TokenName},
		{Regex: StringRegex, Type: TokenString},
		{Regex: TemplateRegex, Type: TokenTemplate},
		{Regex: OperatorRegex, Type: TokenOperator},
	}
}

// Tokenize splits source into a token stream. The name is only used for
// error messages.
func (l *Lexer) Tokenize(source, name string) (*TokenStream, error) {
	tokens, err := l.tokeniter(source, name)
	if err != nil {
		return nil, err
	}
	return NewTokenStream(tokens), nil
}

func (l *Lexer) tokeniter(source, name string) ([]Token, error) {
	var tokens []Token
	pos := 0
	lineno := 1
	column := 1
	newline := false

	for pos < len(source) {
		rest := source[pos:]
		var rule *Rule
		var match string
		for _, r := range l.rules {
			if loc := r.Regex.FindStringIndex(rest); loc != nil && loc[1] > 0 {
				rule = r
				match = rest[:loc[1]]
				break
			}
		}

		if rule == nil {
			r, _ := utf8.DecodeRuneInString(rest)
			msg := fmt.Sprintf("unexpected character %q", r)
			if name != "" {
				msg += " in " + name
			}
			return nil, LexerError{Message: msg, Line: lineno, Column: column, Pos: pos}
		}

		if rule.Skip {
			if NewlineRegex.MatchString(match) {
				newline = true
			}
		} else {
			token, consumed, err := l.makeToken(rule, match, rest[len(match):], lineno, column, pos)
			if err != nil {
				return nil, err
			}
			token.NewlineBefore = newline
			newline = false
			match = match[:consumed]
			tokens = append(tokens, token)
		}

		lines := NewlineRegex.FindAllStringIndex(match, -1)
		if len(lines) > 0 {
			lineno += len(lines)
			column = utf8.RuneCountInString(match[lines[len(lines)-1][1]:]) + 1
		} else {
			column += utf8.RuneCountInString(match)
		}
		pos += len(match)
	}

	return tokens, nil
}

// makeToken builds the token for a rule match and reports how many bytes of
// the match it consumed.
func (l *Lexer) makeToken(rule *Rule, match, after string, lineno, column, pos int) (Token, int, error) {
	token := Token{Type: rule.Type, Value: match, Line: lineno, Column: column, Position: pos}

	switch rule.Type {
	case TokenString:
		value, err := unescapeString(match)
		if err != nil {
			return token, 0, LexerError{Message: err.Error(), Line: lineno, Column: column, Pos: pos}
		}
		token.Value = value
	case TokenTemplate:
		token.Value = match[1 : len(match)-1]
	case TokenOperator:
		// "?." followed by a digit is a ternary with a decimal literal
		if match == "?." && after != "" && after[0] >= '0' && after[0] <= '9' {
			match = "?"
			token.Value = match
		}
		token.Type = l.mapOperator(match)
	}
	return token, len(match), nil
}

// unescapeString strips the quotes of a string literal and resolves escape
// sequences.
func unescapeString(value string) (string, error) {
	if len(value) < 2 {
		return value, nil
	}
	return UnescapeBody(value[1 : len(value)-1])
}

// UnescapeBody resolves JavaScript escape sequences in the body of a string
// or template literal.
func UnescapeBody(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'u':
			if i+4 >= len(body) {
				return "", fmt.Errorf("invalid unicode escape")
			}
			code, err := strconv.ParseUint(body[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape %q", body[i-1:i+5])
			}
			b.WriteRune(rune(code))
			i += 4
		case '\n':
			// line continuation
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

func (l *Lexer) mapOperator(op string) TokenType {
	operatorMap := map[string]TokenType{
		"+":   TokenAdd,
		"-":   TokenSub,
		"*":   TokenMul,
		"/":   TokenDiv,
		"%":   TokenMod,
		"==":  TokenComparison,
		"!=":  TokenComparison,
		"===": TokenComparison,
		"!==": TokenComparison,
		">":   TokenComparison,
		">=":  TokenComparison,
		"<":   TokenComparison,
		"<=":  TokenComparison,
		"=":   TokenAssign,
		"+=":  TokenAddAssign,
		"-=":  TokenSubAssign,
		"=>":  TokenArrow,
		".":   TokenDot,
		"?.":  TokenOptionalDot,
		"...": TokenSpread,
		":":   TokenColon,
		",":   TokenComma,
		";":   TokenSemicolon,
		"(":   TokenLeftParen,
		")":   TokenRightParen,
		"[":   TokenLeftBracket,
		"]":   TokenRightBracket,
		"{":   TokenLeftCurly,
		"}":   TokenRightCurly,
		"!":   TokenNot,
		"&&":  TokenAnd,
		"||":  TokenOr,
		"??":  TokenNullish,
		"?":   TokenTernary,
	}
	if tt, ok := operatorMap[op]; ok {
		return tt
	}
	return TokenOperator
}

// Tokenize is a convenience wrapper around a fresh Lexer.
func Tokenize(source string) (*TokenStream, error) {
	return NewLexer().Tokenize(source, "")
}
