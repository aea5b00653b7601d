package lexer

import (
	"regexp"
	"sort"
	"strings"
)

// Precompiled regular expressions for tokenizing. Every pattern is anchored
// with \A so it only matches at the current cursor.
var (
	// Whitespace detection
	WhitespaceRegex = regexp.MustCompile(`\A\s+`)

	// Newline detection (handles \r\n, \r, \n)
	NewlineRegex = regexp.MustCompile(`(\r\n|\r|\n)`)

	// Line and block comments
	LineCommentRegex  = regexp.MustCompile(`\A//[^\n]*`)
	BlockCommentRegex = regexp.MustCompile(`\A/\*(?s:.*?)\*/`)

	// String literals (single and double quoted, with escape sequences)
	StringRegex = regexp.MustCompile(`\A('([^'\\\n]*(?:\\.[^'\\\n]*)*)'|"([^"\\\n]*(?:\\.[^"\\\n]*)*)")`)

	// Template literals; ${...} parts are split out by the parser
	TemplateRegex = regexp.MustCompile("\\A`(?s:[^`\\\\]|\\\\.)*`")

	// Number literals: hex, decimal with optional fraction and exponent
	NumberRegex = regexp.MustCompile(`\A(?:0[xX][0-9a-fA-F]+|(?:\d+(?:\.\d+)?|\.\d+)(?:[eE][+\-]?\d+)?)`)

	// Identifier/names; $ is a valid identifier character
	NameRegex = regexp.MustCompile(`\A[a-zA-Z_$][a-zA-Z0-9_$]*`)

	// Operators (sorted by length for correct matching)
	OperatorPatterns = []string{
		"===", "!==", "...", "=>", "==", "!=", ">=", "<=", "&&", "||", "??", "?.", "+=", "-=",
		"=", "+", "-", "*", "/", "%", "!", "?", ":", ".", ",", ";", "<", ">",
		"(", ")", "[", "]", "{", "}",
	}

	// Combined operator regex
	OperatorRegex = func() *regexp.Regexp {
		escaped := make([]string, 0, len(OperatorPatterns))
		for _, op := range OperatorPatterns {
			escaped = append(escaped, regexp.QuoteMeta(op))
		}
		sort.SliceStable(escaped, func(i, j int) bool {
			return len(escaped[i]) > len(escaped[j])
		})
		return regexp.MustCompile(`\A(` + strings.Join(escaped, "|") + `)`)
	}()
)
